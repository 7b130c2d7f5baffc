package models

import "time"

// DefaultSectionCapacity applies when a section is created without a capacity.
const DefaultSectionCapacity = 60

// Section is one offering of a course, taught by one teacher in one term.
type Section struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Term      string    `db:"term" json:"term"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail enriches a section with course, teacher and enrollment data.
type SectionDetail struct {
	Section
	CourseCode    string     `db:"course_code" json:"course_code"`
	CourseName    string     `db:"course_name" json:"course_name"`
	Credits       int        `db:"credits" json:"credits"`
	TeacherName   string     `db:"teacher_name" json:"teacher_name"`
	EnrolledCount int        `db:"enrolled_count" json:"enrolled_count"`
	Timeslots     []Timeslot `db:"-" json:"timeslots"`
}

// SeatsLeft reports the remaining capacity, never negative.
func (d SectionDetail) SeatsLeft() int {
	left := d.Capacity - d.EnrolledCount
	if left < 0 {
		return 0
	}
	return left
}

// SectionFilter captures listing options for sections.
type SectionFilter struct {
	ListFilter
	Term      string
	TeacherID string
}

// CatalogPage is the student-facing section catalog response. EnrolledIDs
// holds the ids of listed sections the caller is already enrolled in.
type CatalogPage struct {
	Items       []SectionDetail `json:"items"`
	Pagination  Pagination      `json:"pagination"`
	EnrolledIDs []string        `json:"enrolled_section_ids"`
}
