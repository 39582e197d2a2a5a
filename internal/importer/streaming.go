package importer

// streaming.go cleans up text input before it reaches encoding/csv, without
// loading the file into memory:
//
//   - a leading UTF-8 BOM (0xEF 0xBB 0xBF) written by Windows tools is dropped
//   - invalid UTF-8 bytes are replaced with '?' so one mis-encoded cell does
//     not make the whole sheet unreadable

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NormalizeText wraps r with BOM stripping and UTF-8 sanitization.
func NormalizeText(r io.Reader) io.Reader {
	return &textNormalizer{br: bufio.NewReader(r)}
}

type textNormalizer struct {
	br         *bufio.Reader
	bomChecked bool

	// encoded bytes of a rune that did not fit into the caller's buffer
	pending []byte
}

func (t *textNormalizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if !t.bomChecked {
		t.bomChecked = true
		if head, _ := t.br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
			_, _ = t.br.Discard(len(utf8BOM))
		}
	}

	n := copy(p, t.pending)
	t.pending = t.pending[n:]

	var buf [utf8.UTFMax]byte
	for n < len(p) {
		r, size, err := t.br.ReadRune()
		if err != nil {
			if err == io.EOF && n > 0 {
				return n, nil
			}
			return n, err
		}

		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			continue
		}

		w := utf8.EncodeRune(buf[:], r)
		c := copy(p[n:], buf[:w])
		n += c
		if c < w {
			t.pending = append(t.pending[:0], buf[c:w]...)
		}
	}
	return n, nil
}
