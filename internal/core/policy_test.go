package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/fileintake/internal/config"
)

func TestPolicy_Accept(t *testing.T) {
	p := NewPolicy(PolicyConfig{})

	tests := []struct {
		name  string
		c     Candidate
		batch int
		want  error
	}{
		{"pdf", Candidate{MimeType: "application/pdf", Size: 100}, 1, nil},
		{"parameters ignored", Candidate{MimeType: "Text/Plain; charset=utf-8", Size: 1}, 1, nil},
		{"exactly at limit", Candidate{MimeType: "image/png", Size: DefaultMaxFileSize}, 1, nil},
		{"unknown size", Candidate{MimeType: "image/gif", Size: -1}, 1, nil},
		{"zip", Candidate{MimeType: "application/zip", Size: 1}, 1, ErrUnsupportedType},
		{"empty type", Candidate{Size: 1}, 1, ErrUnsupportedType},
		{"one byte over", Candidate{MimeType: "image/png", Size: DefaultMaxFileSize + 1}, 1, ErrTooLarge},
		{"batch of six", Candidate{MimeType: "image/png", Size: 1}, 6, ErrTooManyFiles},
		{"type checked before size", Candidate{MimeType: "application/zip", Size: 1 << 40}, 1, ErrUnsupportedType},
		{"size checked before count", Candidate{MimeType: "image/png", Size: 1 << 40}, 9, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Accept(tt.c, tt.batch)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPolicy_TooLargeMessageIsHumanReadable(t *testing.T) {
	p := NewPolicy(PolicyConfig{})
	err := p.Accept(Candidate{MimeType: "application/pdf", Size: 15 << 20}, 1)
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Contains(t, err.Error(), "15 MiB")
	assert.Contains(t, err.Error(), "10 MiB")
}

func TestPolicy_AcceptImport(t *testing.T) {
	p := NewPolicy(PolicyConfig{})

	assert.NoError(t, p.AcceptImport(Candidate{MimeType: "text/csv", Size: 10}))
	assert.NoError(t, p.AcceptImport(Candidate{Name: "roster.CSV", MimeType: "application/vnd.ms-excel", Size: 10}))
	assert.ErrorIs(t, p.AcceptImport(Candidate{Name: "roster.xls", MimeType: "application/vnd.ms-excel", Size: 10}), ErrNotASpreadsheet)
	assert.ErrorIs(t, p.AcceptImport(Candidate{MimeType: "application/vnd.ms-excel; charset=binary", Size: 10}), ErrNotASpreadsheet)
	assert.ErrorIs(t, p.AcceptImport(Candidate{MimeType: "application/pdf", Size: 10}), ErrNotASpreadsheet)
	assert.ErrorIs(t, p.AcceptImport(Candidate{MimeType: "text/csv", Size: DefaultMaxFileSize + 1}), ErrTooLarge)
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.UploadConfig{
		MaxFileSize:  100,
		MaxFiles:     2,
		AllowedTypes: []string{"application/zip"},
	})

	assert.Equal(t, int64(100), p.MaxFileSize())
	assert.Equal(t, 2, p.MaxFiles())
	assert.NoError(t, p.Accept(Candidate{MimeType: "application/zip", Size: 100}, 2))
	assert.ErrorIs(t, p.Accept(Candidate{MimeType: "application/pdf", Size: 1}, 1), ErrUnsupportedType)
	assert.ErrorIs(t, p.CheckBatch(3), ErrTooManyFiles)
	// Import types fall back to the defaults.
	assert.NoError(t, p.AcceptImport(Candidate{MimeType: "text/csv", Size: 1}))
}
