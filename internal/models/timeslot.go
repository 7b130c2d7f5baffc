package models

// Timeslot is a recurring weekly window attached to a section. Weekday runs
// from 1 (Monday) to 7 (Sunday).
type Timeslot struct {
	ID        string    `db:"id" json:"id"`
	SectionID string    `db:"section_id" json:"section_id"`
	Weekday   int       `db:"weekday" json:"weekday"`
	StartTime ClockTime `db:"start_time" json:"start_time"`
	EndTime   ClockTime `db:"end_time" json:"end_time"`
	Room      string    `db:"room" json:"room"`
}

// ScheduledTimeslot is a timeslot of a section the student already attends.
type ScheduledTimeslot struct {
	Timeslot
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
}

// TimetableEntry is one class meeting in a student's weekly timetable.
type TimetableEntry struct {
	SectionID  string    `db:"section_id" json:"section_id"`
	Term       string    `db:"term" json:"term"`
	CourseCode string    `db:"course_code" json:"course_code"`
	CourseName string    `db:"course_name" json:"course_name"`
	Weekday    int       `db:"weekday" json:"weekday"`
	StartTime  ClockTime `db:"start_time" json:"start_time"`
	EndTime    ClockTime `db:"end_time" json:"end_time"`
	Room       string    `db:"room" json:"room"`
}

// TimetableDay groups the entries of one weekday, ordered by start time.
type TimetableDay struct {
	Weekday int              `json:"weekday"`
	Entries []TimetableEntry `json:"entries"`
}
