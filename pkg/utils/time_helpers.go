package utils

import (
	"time"
)

// DateLayout - формат даты без времени.
const DateLayout = "2006-01-02"

// DateOnly приводит момент времени к полуночи UTC того же календарного дня (в UTC).
// Все сравнения дат в системе делаются только над такими значениями.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays прибавляет календарные дни к дате.
func AddDays(t time.Time, days int) time.Time {
	return DateOnly(t).AddDate(0, 0, days)
}

// ParseDate разбирает строку YYYY-MM-DD в полночь UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

func FormatDate(t time.Time) string {
	return DateOnly(t).Format(DateLayout)
}

func FormatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatDate(*t)
	return &s
}

func FormatTimestampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format("2006-01-02 15:04:05")
	return &s
}
