package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registrar/internal/models"
)

func slot(weekday int, start, end string) models.Timeslot {
	return models.Timeslot{Weekday: weekday, StartTime: models.MustClockTime(start), EndTime: models.MustClockTime(end)}
}

func TestOverlapsExamples(t *testing.T) {
	cases := []struct {
		name string
		a, b models.Timeslot
		want bool
	}{
		{"touching endpoints", slot(1, "09:00", "10:00"), slot(1, "10:00", "11:00"), false},
		{"partial overlap", slot(1, "09:00", "10:30"), slot(1, "10:00", "11:00"), true},
		{"contained", slot(3, "08:00", "12:00"), slot(3, "09:00", "10:00"), true},
		{"identical", slot(5, "14:00", "15:30"), slot(5, "14:00", "15:30"), true},
		{"disjoint", slot(2, "08:00", "09:00"), slot(2, "13:00", "14:00"), false},
		{"different weekday", slot(1, "09:00", "10:00"), slot(2, "09:00", "10:00"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.a, tc.b))
		})
	}
}

func TestOverlapsProperties(t *testing.T) {
	var slots []models.Timeslot
	for day := 1; day <= 3; day++ {
		for start := 8 * 60; start < 12*60; start += 45 {
			for length := 30; length <= 120; length += 30 {
				slots = append(slots, models.Timeslot{Weekday: day, StartTime: models.ClockTime(start), EndTime: models.ClockTime(start + length)})
			}
		}
	}

	for _, a := range slots {
		for _, b := range slots {
			assert.Equal(t, Overlaps(a, b), Overlaps(b, a), "symmetry %v %v", a, b)
			if a.Weekday != b.Weekday {
				assert.False(t, Overlaps(a, b), "weekday isolation %v %v", a, b)
			}
		}
		assert.True(t, Overlaps(a, a), "self overlap %v", a)
	}
}

func TestFindScheduleConflict(t *testing.T) {
	existing := []models.ScheduledTimeslot{
		{Timeslot: models.Timeslot{SectionID: "sec-1", Weekday: 1, StartTime: models.MustClockTime("09:00"), EndTime: models.MustClockTime("10:30")}, CourseCode: "CS101", CourseName: "Algorithms"},
		{Timeslot: models.Timeslot{SectionID: "sec-1", Weekday: 3, StartTime: models.MustClockTime("09:00"), EndTime: models.MustClockTime("10:30")}, CourseCode: "CS101", CourseName: "Algorithms"},
	}

	assert.Nil(t, FindScheduleConflict(existing, []models.Timeslot{slot(1, "10:30", "12:00"), slot(2, "09:00", "10:00")}))
	assert.Nil(t, FindScheduleConflict(nil, []models.Timeslot{slot(1, "09:00", "10:00")}))
	assert.Nil(t, FindScheduleConflict(existing, nil))

	conflict := FindScheduleConflict(existing, []models.Timeslot{slot(3, "10:00", "11:00")})
	require.NotNil(t, conflict)
	assert.Equal(t, "sec-1", conflict.SectionID)
	assert.Equal(t, 3, conflict.Weekday)
	assert.Equal(t, "conflicts with enrolled course Algorithms (CS101) on Wed 09:00-10:30", conflict.Message())
}
