package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/meeting-booking/internal/application"
)

// localMinuteLayout is the datetime-local form used by browser pickers.
const localMinuteLayout = "2006-01-02T15:04"

// pathID reads a positive integer path value.
func pathID(r *http.Request, name string) (int64, bool) {
	return parseID(r.PathValue(name))
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseTime accepts RFC3339 or a minute precision local time interpreted in
// loc. An empty value yields the zero time so services report it as missing.
func parseTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), true
	}
	if t, err := time.ParseInLocation(localMinuteLayout, value, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func parseDate(value string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(application.DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// fieldErrors collects request level field problems in the same shape the
// services use.
type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &application.ValidationError{FieldErrors: map[string]string(f)}
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(time.RFC3339)
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
