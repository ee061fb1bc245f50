package parse

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Date encodings found in chat files, in the order they are tried.
const (
	SendDateLayout   = "January 2, 2006 3:04pm"   // message send_date
	GenDateLayout    = "2006-01-02T15:04:05.000Z" // gen_started / gen_finished
	CreateDateLayout = "2006-1-2@15h4m5s"         // header create_date
)

// SillyTavern writes create_date zero padded; parsing accepts both.
const createDateFormat = "2006-01-02@15h04m05s"

var dateLayouts = []string{
	SendDateLayout,
	"January 2, 2006 3:04PM",
	GenDateLayout,
	CreateDateLayout,
}

// DateNormalizer turns any of the chat date encodings into a time.Time.
// Results are wall-clock values in Location; the trailing Z of the ISO
// form is taken literally and nothing is converted between zones.
type DateNormalizer struct {
	Location *time.Location
}

func (dn DateNormalizer) location() *time.Location {
	if dn.Location == nil {
		return time.UTC
	}
	return dn.Location
}

// Parse normalizes text read from field. field only shows up in errors.
func (dn DateNormalizer) Parse(field, text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	loc := dn.location()
	if s == "" {
		return time.Time{}, &DateError{Field: field, Text: text}
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	t, err := dateparse.ParseIn(s, loc)
	if err != nil {
		return time.Time{}, &DateError{Field: field, Text: text}
	}
	// keep the wall clock, drop whatever zone the text carried
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
}

// ParseDate normalizes text with wall-clock values in UTC.
func ParseDate(field, text string) (time.Time, error) {
	return DateNormalizer{}.Parse(field, text)
}

func FormatSendDate(t time.Time) string   { return t.Format(SendDateLayout) }
func FormatGenDate(t time.Time) string    { return t.Format(GenDateLayout) }
func FormatCreateDate(t time.Time) string { return t.Format(createDateFormat) }
