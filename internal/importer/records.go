package importer

import "time"

// Record is a normalized row ready to hand to a persistence layer.
type Record interface {
	ImportType() string
}

// Student is the normalized shape of a students row.
type Student struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	RegistrationNo string `json:"registration_no"`
	Course         string `json:"course"`
	Gender         string `json:"gender,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Status         string `json:"status"`
}

func (Student) ImportType() string { return TypeStudents }

// Score is the normalized shape of a scores row.
type Score struct {
	StudentID      string   `json:"student_id,omitempty"`
	RegistrationNo string   `json:"registration_no,omitempty"`
	Subject        string   `json:"subject,omitempty"`
	Term           string   `json:"term,omitempty"`
	Score          *float64 `json:"score,omitempty"`
	MaxScore       *float64 `json:"max_score,omitempty"`
}

func (Score) ImportType() string { return TypeScores }

// Attendance is the normalized shape of an attendance row.
type Attendance struct {
	StudentID      string     `json:"student_id,omitempty"`
	RegistrationNo string     `json:"registration_no,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
	Status         string     `json:"status"`
}

func (Attendance) ImportType() string { return TypeAttendance }
