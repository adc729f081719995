package utils

import (
	"cabin/src/config"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MinGuestCount = 1
	MaxGuestCount = 20
	MaxNotesLen   = 1000
)

// ValidateReservationFields runs the per-field rules and returns a
// field-to-message map. Validation errors never surface as a bare error; the
// handlers answer 400 with this map under "errors".
func ValidateReservationFields(startDate, endDate string, guestCount int, notes string) map[string]string {
	errs := map[string]string{}
	if startDate == "" {
		errs["start_date"] = "Start date is required"
	} else if !IsISODate(startDate) {
		errs["start_date"] = "Start date must be a valid date"
	}
	if endDate == "" {
		errs["end_date"] = "End date is required"
	} else if !IsISODate(endDate) {
		errs["end_date"] = "End date must be a valid date"
	}
	// dependent-field rules only fire once both dates parse
	if errs["start_date"] == "" && errs["end_date"] == "" {
		if startDate > endDate {
			errs["start_date"] = "Must be before end date"
			errs["end_date"] = "Must be after start date"
		}
	}
	if guestCount < MinGuestCount {
		errs["guest_count"] = fmt.Sprintf("Guest count must be at least %d", MinGuestCount)
	} else if guestCount > MaxGuestCount {
		errs["guest_count"] = fmt.Sprintf("Guest count must be at most %d", MaxGuestCount)
	}
	if len(notes) > MaxNotesLen {
		errs["notes"] = fmt.Sprintf("Notes must be %d characters or fewer", MaxNotesLen)
	}
	for k, v := range errs {
		if v == "" {
			delete(errs, k)
		}
	}
	return errs
}

func IsISODate(s string) bool {
	_, err := time.Parse(config.DATE_PARSE_FORMAT, s)
	return err == nil
}

// TranslateValidationErrors maps gin binding failures onto the same
// field-to-message shape ValidateReservationFields produces.
func TranslateValidationErrors(err error) map[string]string {
	errs := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["request"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		field := toSnake(fe.Field())
		switch fe.Tag() {
		case "required":
			errs[field] = fmt.Sprintf("%s is required", humanize(fe.Field()))
		case "reservedate":
			errs[field] = fmt.Sprintf("%s must be a valid date", humanize(fe.Field()))
		case "gtedate":
			errs[field] = "Must be after start date"
		case "ltedate":
			errs[field] = "Must be before end date"
		case "min":
			errs[field] = fmt.Sprintf("%s must be at least %s", humanize(fe.Field()), fe.Param())
		case "max":
			errs[field] = fmt.Sprintf("%s must be at most %s", humanize(fe.Field()), fe.Param())
		case "email":
			errs[field] = "Must be a valid email address"
		default:
			errs[field] = fmt.Sprintf("%s is invalid", humanize(fe.Field()))
		}
	}
	return errs
}

// ClassifyPersistenceError reshapes backend failures into the user-facing
// framing the form shows: network-shaped errors get a connection hint,
// overlap/duplicate-shaped errors get the conflict wording, everything else
// passes through verbatim. Nothing is retried.
func ClassifyPersistenceError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network"):
		return "Could not reach the server. Please check your connection and try again"
	case strings.Contains(msg, "overlap"),
		strings.Contains(msg, "conflict"),
		strings.Contains(msg, "duplicate"):
		return "These dates overlap an existing reservation"
	default:
		return err.Error()
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func humanize(field string) string {
	words := strings.ReplaceAll(toSnake(field), "_", " ")
	if words == "" {
		return words
	}
	return strings.ToUpper(words[:1]) + words[1:]
}
