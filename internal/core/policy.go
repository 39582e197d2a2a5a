package core

import (
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/JonMunkholm/fileintake/internal/config"
)

// Policy defaults, used when a PolicyConfig field is left zero.
const (
	DefaultMaxFileSize int64 = 10 << 20
	DefaultMaxFiles          = 5
)

// DefaultAllowedTypes covers documents (pdf, word, excel, powerpoint, plain
// text) and images (jpeg, png, gif).
var DefaultAllowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain",
	"image/jpeg",
	"image/png",
	"image/gif",
}

// DefaultImportTypes are the spreadsheet types the import pipeline accepts.
// application/vnd.ms-excel is only honoured for .csv names, which is how
// Windows browsers label CSV files; legacy binary .xls workbooks cannot be
// parsed.
var DefaultImportTypes = []string{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-excel",
	"text/csv",
}

// PolicyConfig is the input to NewPolicy.
type PolicyConfig struct {
	AllowedTypes []string
	ImportTypes  []string
	MaxFileSize  int64
	MaxFiles     int
}

// legacyExcel is the media type shared by binary .xls workbooks and CSV
// files uploaded from Windows.
const legacyExcel = "application/vnd.ms-excel"

// Candidate is what the policy knows about a file before it is stored.
// Name is the client file name and only matters for imports.
type Candidate struct {
	Name     string
	MimeType string
	Size     int64
}

// Policy decides whether candidate files may be persisted. It is built once
// at startup and never mutated, so it is safe to share between requests.
type Policy struct {
	allowed     map[string]struct{}
	importable  map[string]struct{}
	maxFileSize int64
	maxFiles    int
}

// NewPolicy builds a policy, filling zero fields with the defaults.
func NewPolicy(cfg PolicyConfig) *Policy {
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = DefaultAllowedTypes
	}
	if len(cfg.ImportTypes) == 0 {
		cfg.ImportTypes = DefaultImportTypes
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}

	return &Policy{
		allowed:     typeSet(cfg.AllowedTypes),
		importable:  typeSet(cfg.ImportTypes),
		maxFileSize: cfg.MaxFileSize,
		maxFiles:    cfg.MaxFiles,
	}
}

// PolicyFromConfig builds the policy from the upload settings.
func PolicyFromConfig(cfg config.UploadConfig) *Policy {
	return NewPolicy(PolicyConfig{
		AllowedTypes: cfg.AllowedTypes,
		ImportTypes:  cfg.ImportTypes,
		MaxFileSize:  cfg.MaxFileSize,
		MaxFiles:     cfg.MaxFiles,
	})
}

func typeSet(types []string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[baseMimeType(t)] = struct{}{}
	}
	return set
}

// Accept applies the upload rules in order: type, then size, then batch count.
func (p *Policy) Accept(c Candidate, batchSize int) error {
	if _, ok := p.allowed[baseMimeType(c.MimeType)]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, describeType(c.MimeType))
	}
	if err := p.checkSize(c.Size); err != nil {
		return err
	}
	return p.CheckBatch(batchSize)
}

// AcceptImport applies the narrower spreadsheet allow-list and the size cap.
// A file labelled application/vnd.ms-excel passes only when its name ends
// in .csv.
func (p *Policy) AcceptImport(c Candidate) error {
	base := baseMimeType(c.MimeType)
	if _, ok := p.importable[base]; !ok {
		return fmt.Errorf("%w: %s", ErrNotASpreadsheet, describeType(c.MimeType))
	}
	if base == legacyExcel && !strings.EqualFold(path.Ext(c.Name), ".csv") {
		return fmt.Errorf("%w: legacy .xls workbooks are not supported", ErrNotASpreadsheet)
	}
	return p.checkSize(c.Size)
}

// CheckBatch enforces the per-request file count.
func (p *Policy) CheckBatch(n int) error {
	if n > p.maxFiles {
		return fmt.Errorf("%w: got %d, at most %d per request", ErrTooManyFiles, n, p.maxFiles)
	}
	return nil
}

func (p *Policy) checkSize(size int64) error {
	if size > p.maxFileSize {
		return tooLarge(size, p.maxFileSize)
	}
	return nil
}

// MaxFileSize returns the per-file byte limit.
func (p *Policy) MaxFileSize() int64 { return p.maxFileSize }

// MaxFiles returns the per-request file limit.
func (p *Policy) MaxFiles() int { return p.maxFiles }

func tooLarge(size, limit int64) error {
	if size < 0 {
		return fmt.Errorf("%w: exceeds the %s limit", ErrTooLarge, humanize.IBytes(uint64(limit)))
	}
	return fmt.Errorf("%w: %s exceeds the %s limit",
		ErrTooLarge, humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)))
}

func describeType(mimeType string) string {
	if mimeType == "" {
		return "unknown type"
	}
	return mimeType
}

// baseMimeType lower-cases a media type and drops any parameters.
func baseMimeType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
