package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ClockTime is a minute-resolution time of day, stored as minutes since midnight.
type ClockTime int

// ParseClockTime parses "HH:MM" (seconds are accepted and ignored).
func ParseClockTime(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return ClockTime(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
}

// MustClockTime is ParseClockTime for literals; it panics on bad input.
func MustClockTime(raw string) ClockTime {
	c, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalJSON encodes the time as "HH:MM".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes "HH:MM".
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scan implements sql.Scanner for TIME columns.
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*c = ClockTime(v.Hour()*60 + v.Minute())
		return nil
	case []byte:
		return c.scanText(string(v))
	case string:
		return c.scanText(v)
	case nil:
		return fmt.Errorf("scan clock time: null value")
	default:
		return fmt.Errorf("scan clock time: unsupported type %T", src)
	}
}

func (c *ClockTime) scanText(raw string) error {
	parsed, err := ParseClockTime(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer.
func (c ClockTime) Value() (driver.Value, error) {
	return c.String() + ":00", nil
}
