package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/fileintake/internal/importer"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func csvFile(name, body string) *FileInput {
	return &FileInput{Name: name, MimeType: "text/csv", Size: int64(len(body)), Reader: strings.NewReader(body)}
}

func studentsWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"Name", "Email", "Registration No", "Course"},
		{"Ada Lovelace", "ADA@example.com", "R-001", ""},
		{"", "", "", ""},
		{"Alan Turing", "", "R-002", "Maths"},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestImport_StudentsWorkbook(t *testing.T) {
	h := newHarness(t)
	h.svc.policy = NewPolicy(PolicyConfig{MaxFileSize: 1 << 20})
	data := studentsWorkbook(t)

	report, err := h.svc.Import(context.Background(), &FileInput{
		Name:     "students.xlsx",
		MimeType: xlsxMime,
		Size:     int64(len(data)),
		Reader:   bytes.NewReader(data),
	}, importer.TypeStudents)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalRows)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, []string{"Row 3: " + importer.MissingStudentFields}, report.Errors)

	require.Len(t, h.records.records, 1)
	assert.Equal(t, importer.TypeStudents, h.records.importType)
	assert.Equal(t, 1, h.records.records[0].Row)
	st := h.records.records[0].Record.(importer.Student)
	assert.Equal(t, "ada@example.com", st.Email)
	assert.Equal(t, "General", st.Course)

	assert.Zero(t, h.blobCount(t), "staged file must be removed")
}

func TestImport_CSVScores(t *testing.T) {
	h := newHarness(t)
	body := "\ufeffRegistration No,Subject,Score\nR-1,Maths,88\nR-2,Maths,abc\n,Physics,70\n"

	report, err := h.svc.Import(context.Background(), csvFile("scores.csv", body), importer.TypeScores)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalRows)
	assert.Equal(t, 1, report.SuccessCount)
	assert.Equal(t, 2, report.ErrorCount)
	assert.Zero(t, h.blobCount(t))
}

func TestImport_WindowsLabelledCSV(t *testing.T) {
	h := newHarness(t)
	body := "name,email,registration_no\nAda,ada@example.com,R-1\n"

	report, err := h.svc.Import(context.Background(), &FileInput{
		Name:     "students.csv",
		MimeType: "application/vnd.ms-excel",
		Size:     int64(len(body)),
		Reader:   strings.NewReader(body),
	}, importer.TypeStudents)
	require.NoError(t, err)

	assert.Equal(t, 1, report.SuccessCount)
	assert.Zero(t, h.blobCount(t))
}

func TestImport_RejectsBeforeStaging(t *testing.T) {
	tests := []struct {
		name       string
		file       *FileInput
		importType string
		want       error
	}{
		{"no file", nil, importer.TypeStudents, ErrNoFileProvided},
		{"missing type", csvFile("a.csv", "name\n"), "  ", ErrMissingImportType},
		{"unknown type", csvFile("a.csv", "name\n"), "grades", ErrUnsupportedImportType},
		{
			"not a spreadsheet",
			&FileInput{Name: "a.pdf", MimeType: "application/pdf", Size: 4, Reader: strings.NewReader("%PDF")},
			importer.TypeStudents,
			ErrNotASpreadsheet,
		},
		{
			"legacy xls workbook",
			&FileInput{
				Name:     "roster.xls",
				MimeType: "application/vnd.ms-excel",
				Size:     8,
				Reader:   strings.NewReader("\xd0\xcf\x11\xe0\xa1\xb1\x1a\xe1"),
			},
			importer.TypeStudents,
			ErrNotASpreadsheet,
		},
		{
			"too large",
			&FileInput{Name: "a.csv", MimeType: "text/csv", Size: 4096, Reader: strings.NewReader("x")},
			importer.TypeStudents,
			ErrTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.Import(context.Background(), tt.file, tt.importType)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidationError(err))
			assert.Zero(t, h.blobCount(t))
			assert.Empty(t, h.records.records)
		})
	}
}

func TestImport_UnreadableWorkbookIsCleanedUp(t *testing.T) {
	h := newHarness(t)
	junk := "this is not a zip archive"

	_, err := h.svc.Import(context.Background(), &FileInput{
		Name:     "broken.xlsx",
		MimeType: xlsxMime,
		Size:     int64(len(junk)),
		Reader:   strings.NewReader(junk),
	}, importer.TypeStudents)

	require.ErrorIs(t, err, ErrUnreadableSpreadsheet)
	assert.Zero(t, h.blobCount(t))
}

func TestImport_SinkFailureStillCleansUp(t *testing.T) {
	h := newHarness(t)
	h.records.err = errors.New("db down")

	_, err := h.svc.Import(context.Background(),
		csvFile("s.csv", "name,email,registration_no\nAda,ada@example.com,R-1\n"),
		importer.TypeStudents)

	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.Zero(t, h.blobCount(t))
}

func TestImport_HeaderOnly(t *testing.T) {
	h := newHarness(t)

	report, err := h.svc.Import(context.Background(), csvFile("a.csv", "name,email\n"), importer.TypeStudents)
	require.NoError(t, err)
	assert.Zero(t, report.TotalRows)
	assert.Empty(t, report.Errors)
	assert.Empty(t, h.records.records)
}
