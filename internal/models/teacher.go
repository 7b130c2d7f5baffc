package models

import "time"

// Teacher represents an instructor who teaches sections.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	TeacherNo string    `db:"teacher_no" json:"teacher_no"`
	Name      string    `db:"name" json:"name"`
	Dept      string    `db:"dept" json:"dept"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures listing options for teachers.
type TeacherFilter struct {
	ListFilter
}
