package importer

import "fmt"

// Validator classifies one row.
type Validator func(Row) Outcome

// Outcome is the result of validating a single row: Accepted or Rejected.
type Outcome interface {
	outcome()
}

// Accepted carries the normalized record for a valid row.
type Accepted struct {
	Record Record
}

// Rejected carries the human-readable reason a row was refused.
type Rejected struct {
	Reason string
}

func (Accepted) outcome() {}
func (Rejected) outcome() {}

// Report tallies one import. SuccessCount+ErrorCount never exceeds
// TotalRows; blank rows are counted in TotalRows only.
type Report struct {
	TotalRows    int      `json:"totalRows"`
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
	Errors       []string `json:"errors"`
}

func (r Report) withSuccess() Report {
	r.SuccessCount++
	return r
}

// withError returns a copy of r with one more error. The errors slice is
// reallocated so earlier reports never share a backing array with later ones.
func (r Report) withError(rowNum int, reason string) Report {
	errs := make([]string, len(r.Errors), len(r.Errors)+1)
	copy(errs, r.Errors)
	r.Errors = append(errs, fmt.Sprintf("Row %d: %s", rowNum, reason))
	r.ErrorCount++
	return r
}

// RowRecord is an accepted record and the 1-based data row it came from,
// numbered the same way as the report's errors.
type RowRecord struct {
	Row    int
	Record Record
}

// Result is a report plus the records of every accepted row, in row order.
type Result struct {
	Report  Report
	Records []RowRecord
}

// Run validates rows with the validator registered for importType.
// An unknown type fails before any row is looked at.
func Run(importType string, rows []Row) (Result, error) {
	def, err := Lookup(importType)
	if err != nil {
		return Result{}, err
	}
	return Fold(def.Validate, rows), nil
}

// Fold applies validate to each row in order. Rows are numbered from 1 over
// the data rows. A validator panic rejects only its own row.
func Fold(validate Validator, rows []Row) Result {
	res := Result{Report: Report{TotalRows: len(rows), Errors: []string{}}}

	for i, row := range rows {
		if row.Blank() {
			continue
		}
		switch o := validateRow(validate, row).(type) {
		case Accepted:
			res.Report = res.Report.withSuccess()
			res.Records = append(res.Records, RowRecord{Row: i + 1, Record: o.Record})
		case Rejected:
			res.Report = res.Report.withError(i+1, o.Reason)
		}
	}
	return res
}

func validateRow(validate Validator, row Row) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = Rejected{Reason: fmt.Sprint(p)}
		}
	}()

	out = validate(row)
	if out == nil {
		out = Rejected{Reason: "validator returned no outcome"}
	}
	return out
}
