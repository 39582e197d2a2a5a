package core

import (
	"bytes"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// sniffLen is how many leading bytes are inspected to detect a type.
const sniffLen = 3072

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain; charset=utf-8",
	".csv":  "text/csv; charset=utf-8",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// ResolveContentType maps a stored file name to the Content-Type it is
// served with. Unknown extensions are served as application/octet-stream.
func ResolveContentType(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return octetStream
}

// DetectMimeType returns the base media type for an upload. The declared
// type wins unless it is missing or generic, in which case the leading bytes
// of r are sniffed. The returned reader yields the full original content.
func DetectMimeType(declared string, r io.Reader) (string, io.Reader, error) {
	if base := baseMimeType(declared); base != "" && base != octetStream {
		return base, r, nil
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]

	detected := baseMimeType(mimetype.Detect(head).String())
	return detected, io.MultiReader(bytes.NewReader(head), r), nil
}
