package service

import (
	"fmt"

	"github.com/noah-isme/course-registrar/internal/models"
)

var weekdayNames = [...]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Overlaps reports whether two weekly timeslots intersect. Intervals are
// half-open, so a slot ending at 10:00 does not overlap one starting at 10:00.
func Overlaps(a, b models.Timeslot) bool {
	if a.Weekday != b.Weekday {
		return false
	}
	return !(a.EndTime <= b.StartTime || b.EndTime <= a.StartTime)
}

// ScheduleConflict describes the already scheduled meeting a candidate
// section collides with.
type ScheduleConflict struct {
	SectionID  string           `json:"section_id"`
	CourseCode string           `json:"course_code"`
	CourseName string           `json:"course_name"`
	Weekday    int              `json:"weekday"`
	StartTime  models.ClockTime `json:"start_time"`
	EndTime    models.ClockTime `json:"end_time"`
}

// Message renders the conflict for display.
func (c *ScheduleConflict) Message() string {
	return fmt.Sprintf("conflicts with enrolled course %s (%s) on %s %s-%s",
		c.CourseName, c.CourseCode, weekdayName(c.Weekday), c.StartTime, c.EndTime)
}

// FindScheduleConflict returns the first existing meeting that overlaps any
// candidate timeslot, or nil when the schedules are compatible.
func FindScheduleConflict(existing []models.ScheduledTimeslot, candidate []models.Timeslot) *ScheduleConflict {
	for _, booked := range existing {
		for _, slot := range candidate {
			if Overlaps(booked.Timeslot, slot) {
				return &ScheduleConflict{
					SectionID:  booked.SectionID,
					CourseCode: booked.CourseCode,
					CourseName: booked.CourseName,
					Weekday:    booked.Weekday,
					StartTime:  booked.StartTime,
					EndTime:    booked.EndTime,
				}
			}
		}
	}
	return nil
}

func weekdayName(day int) string {
	if day < 1 || day >= len(weekdayNames) {
		return fmt.Sprintf("day %d", day)
	}
	return weekdayNames[day]
}
