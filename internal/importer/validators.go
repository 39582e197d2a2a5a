package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
)

// Import types understood by the pipeline.
const (
	TypeStudents   = "students"
	TypeScores     = "scores"
	TypeAttendance = "attendance"
)

// MissingStudentFields is the rejection reason for a students row without
// all of name, email and registration_no.
const MissingStudentFields = "Missing required fields (name, email, registration_no)"

const missingIdentifier = "Missing student identifier (student_id or registration_no)"

var validate = validator.New()

// dateLayouts are tried in order for attendance dates given as text.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-Jan-2006",
	"01-02-06",
}

var attendanceStatuses = map[string]bool{
	"present": true,
	"absent":  true,
	"late":    true,
	"excused": true,
}

func init() {
	Register(Definition{
		Type:     TypeStudents,
		Label:    "Students",
		Columns:  []string{"name", "email", "registration_no", "course", "gender", "phone"},
		Required: []string{"name", "email", "registration_no"},
		Validate: validateStudent,
	})
	Register(Definition{
		Type:     TypeScores,
		Label:    "Scores",
		Columns:  []string{"student_id", "registration_no", "subject", "term", "score", "max_score"},
		Required: []string{"student_id|registration_no"},
		Validate: validateScore,
	})
	Register(Definition{
		Type:     TypeAttendance,
		Label:    "Attendance",
		Columns:  []string{"student_id", "registration_no", "date", "status"},
		Required: []string{"student_id|registration_no"},
		Validate: validateAttendance,
	})
}

func validateStudent(row Row) Outcome {
	name, email, regNo := row.Get("name"), row.Get("email"), row.Get("registration_no")
	if name == "" || email == "" || regNo == "" {
		return Rejected{Reason: MissingStudentFields}
	}
	if err := validate.Var(email, "email"); err != nil {
		return Rejected{Reason: fmt.Sprintf("Invalid email address %q", email)}
	}

	return Accepted{Record: Student{
		Name:           name,
		Email:          strings.ToLower(email),
		RegistrationNo: regNo,
		Course:         row.GetOr("course", "General"),
		Gender:         row.Get("gender"),
		Phone:          row.Get("phone"),
		Status:         "Active",
	}}
}

func validateScore(row Row) Outcome {
	studentID, regNo := row.Get("student_id"), row.Get("registration_no")
	if studentID == "" && regNo == "" {
		return Rejected{Reason: missingIdentifier}
	}

	score, ok := optionalNumber(row, "score")
	if !ok {
		return Rejected{Reason: fmt.Sprintf("Invalid number %q in column score", row.Get("score"))}
	}
	maxScore, ok := optionalNumber(row, "max_score")
	if !ok {
		return Rejected{Reason: fmt.Sprintf("Invalid number %q in column max_score", row.Get("max_score"))}
	}
	if score != nil && maxScore != nil && *score > *maxScore {
		return Rejected{Reason: fmt.Sprintf("Score %g exceeds max_score %g", *score, *maxScore)}
	}

	return Accepted{Record: Score{
		StudentID:      studentID,
		RegistrationNo: regNo,
		Subject:        row.Get("subject"),
		Term:           row.Get("term"),
		Score:          score,
		MaxScore:       maxScore,
	}}
}

func validateAttendance(row Row) Outcome {
	studentID, regNo := row.Get("student_id"), row.Get("registration_no")
	if studentID == "" && regNo == "" {
		return Rejected{Reason: missingIdentifier}
	}

	var date *time.Time
	if raw := row.Get("date"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return Rejected{Reason: fmt.Sprintf("Invalid date %q", raw)}
		}
		date = &d
	}

	status := strings.ToLower(row.GetOr("status", "present"))
	if !attendanceStatuses[status] {
		return Rejected{Reason: fmt.Sprintf("Invalid attendance status %q", status)}
	}

	return Accepted{Record: Attendance{
		StudentID:      studentID,
		RegistrationNo: regNo,
		Date:           date,
		Status:         status,
	}}
}

// optionalNumber parses a numeric column. A blank cell is valid and yields nil.
func optionalNumber(row Row, column string) (*float64, bool) {
	raw := row.Get(column)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// parseDate accepts the text layouts above and Excel serial day numbers,
// which is how unformatted date cells come out of a workbook.
func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil || serial <= 0 {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return excelize.ExcelDateToTime(serial, false)
}
