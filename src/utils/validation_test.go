package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestValidateReservationFields(t *testing.T) {
	t.Run("Valid input yields no errors", func(t *testing.T) {
		errs := ValidateReservationFields("2026-07-10", "2026-07-15", 4, "bringing the dog")
		assert.Empty(t, errs)
	})

	t.Run("Missing dates", func(t *testing.T) {
		errs := ValidateReservationFields("", "", 4, "")
		assert.Equal(t, "Start date is required", errs["start_date"])
		assert.Equal(t, "End date is required", errs["end_date"])
	})

	t.Run("Malformed dates", func(t *testing.T) {
		errs := ValidateReservationFields("07/10/2026", "2026-07-15", 4, "")
		assert.Equal(t, "Start date must be a valid date", errs["start_date"])
		assert.NotContains(t, errs, "end_date")
	})

	t.Run("Reversed dates flag both fields", func(t *testing.T) {
		errs := ValidateReservationFields("2026-07-15", "2026-07-10", 4, "")
		assert.Equal(t, "Must be before end date", errs["start_date"])
		assert.Equal(t, "Must be after start date", errs["end_date"])
	})

	t.Run("Ordering rule waits for both dates to parse", func(t *testing.T) {
		errs := ValidateReservationFields("not-a-date", "2026-07-10", 4, "")
		assert.Equal(t, "Start date must be a valid date", errs["start_date"])
		assert.NotContains(t, errs, "end_date")
	})

	t.Run("Guest count bounds", func(t *testing.T) {
		errs := ValidateReservationFields("2026-07-10", "2026-07-15", 0, "")
		assert.Equal(t, "Guest count must be at least 1", errs["guest_count"])

		errs = ValidateReservationFields("2026-07-10", "2026-07-15", 21, "")
		assert.Equal(t, "Guest count must be at most 20", errs["guest_count"])

		errs = ValidateReservationFields("2026-07-10", "2026-07-15", 1, "")
		assert.NotContains(t, errs, "guest_count")
		errs = ValidateReservationFields("2026-07-10", "2026-07-15", 20, "")
		assert.NotContains(t, errs, "guest_count")
	})

	t.Run("Notes length", func(t *testing.T) {
		long := make([]byte, MaxNotesLen+1)
		for i := range long {
			long[i] = 'a'
		}
		errs := ValidateReservationFields("2026-07-10", "2026-07-15", 4, string(long))
		assert.Equal(t, "Notes must be 1000 characters or fewer", errs["notes"])
	})
}

func TestIsISODate(t *testing.T) {
	assert.True(t, IsISODate("2026-07-10"))
	assert.False(t, IsISODate("07/10/2026"))
	assert.False(t, IsISODate("2026-13-40"))
	assert.False(t, IsISODate(""))
}

func TestTranslateValidationErrors(t *testing.T) {
	v := validator.New()

	t.Run("Required and bounds tags", func(t *testing.T) {
		var body struct {
			StartDate  string `validate:"required"`
			GuestCount int    `validate:"min=1,max=20"`
			Email      string `validate:"omitempty,email"`
		}
		body.GuestCount = 25
		body.Email = "not-an-email"
		err := v.Struct(&body)
		assert.Error(t, err)

		errs := TranslateValidationErrors(err)
		assert.Equal(t, "Start date is required", errs["start_date"])
		assert.Equal(t, "Guest count must be at most 20", errs["guest_count"])
		assert.Equal(t, "Must be a valid email address", errs["email"])
	})

	t.Run("Non-validator errors fall back to request", func(t *testing.T) {
		errs := TranslateValidationErrors(errors.New("unexpected EOF"))
		assert.Equal(t, "unexpected EOF", errs["request"])
	})
}

// The binding tags on the request structs and ValidateReservationFields state
// the same field rules twice; this pins their messages to each other so one
// cannot drift without failing here.
func TestFieldRuleParity(t *testing.T) {
	v := validator.New()
	v.RegisterValidation("reservedate", func(fl validator.FieldLevel) bool {
		return IsISODate(fl.Field().String())
	})

	type form struct {
		StartDate  string `validate:"required,reservedate"`
		EndDate    string `validate:"required,reservedate"`
		GuestCount int    `validate:"min=1,max=20"`
	}

	err := v.Struct(&form{StartDate: "07/10/2026", EndDate: "2026-07-15", GuestCount: 0})
	assert.Error(t, err)
	translated := TranslateValidationErrors(err)
	direct := ValidateReservationFields("07/10/2026", "2026-07-15", 0, "")

	assert.Equal(t, direct["start_date"], translated["start_date"])
	assert.Equal(t, direct["guest_count"], translated["guest_count"])

	err = v.Struct(&form{EndDate: "2026-07-15", GuestCount: 25})
	assert.Error(t, err)
	translated = TranslateValidationErrors(err)
	direct = ValidateReservationFields("", "2026-07-15", 25, "")

	assert.Equal(t, direct["start_date"], translated["start_date"])
	assert.Equal(t, direct["guest_count"], translated["guest_count"])
}

func TestClassifyPersistenceError(t *testing.T) {
	assert.Equal(t, "", ClassifyPersistenceError(nil))

	assert.Equal(t,
		"Could not reach the server. Please check your connection and try again",
		ClassifyPersistenceError(errors.New("dial tcp 10.0.0.1:5432: connection refused")))
	assert.Equal(t,
		"Could not reach the server. Please check your connection and try again",
		ClassifyPersistenceError(errors.New("i/o timeout")))

	assert.Equal(t,
		"These dates overlap an existing reservation",
		ClassifyPersistenceError(errors.New("duplicate key value violates unique constraint")))

	assert.Equal(t, "record not found", ClassifyPersistenceError(errors.New("record not found")))
}
