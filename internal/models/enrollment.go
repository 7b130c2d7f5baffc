package models

import "time"

// EnrollmentStatus enumerates enrollment states.
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled EnrollmentStatus = "enrolled"
)

// Enrollment links one student to one section.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	SectionID  string           `db:"section_id" json:"section_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail joins an enrollment with its section, course, teacher and student.
type EnrollmentDetail struct {
	Enrollment
	Term        string `db:"term" json:"term"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseName  string `db:"course_name" json:"course_name"`
	Credits     int    `db:"credits" json:"credits"`
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	StudentNo   string `db:"student_no" json:"student_no"`
	StudentName string `db:"student_name" json:"student_name"`
}
