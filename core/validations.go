package core

import (
	"errors"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// Default time-of-day applied to date-only input: range starts and event
// timestamps snap to the start of the day, range ends to the last
// representable microsecond of it.
const (
	StartOfDay time.Duration = 0
	EndOfDay                 = 24*time.Hour - time.Microsecond
)

// ParseDateTime accepts a full date-time (fractional seconds allowed) or a
// bare date, which is combined with the given default time-of-day.
func ParseDateTime(value string, timeOfDay time.Duration) (time.Time, error) {
	value = strings.TrimSpace(value)

	parsed, err := time.Parse(dateTimeLayout, value)
	if err == nil {
		return parsed, nil
	}

	parsed, err = time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.New("use YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS")
	}

	return parsed.Add(timeOfDay), nil
}

func ValidateProperty(property Property) error {
	property.Number = strings.TrimSpace(property.Number)
	if len(property.Number) == 0 {
		return errors.New("number is required")
	}

	if len(property.Number) > 100 {
		return errors.New("number is too long (100 characters tops)")
	}

	return nil
}

func ValidateEvent(event Event) error {
	if len(strings.TrimSpace(event.Description)) == 0 {
		return errors.New("description is required")
	}

	return nil
}
