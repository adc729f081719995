package utils

import (
	"cabin/src/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	a := DateRange{Start: "2026-07-10", End: "2026-07-15"}

	t.Run("Shared days overlap", func(t *testing.T) {
		b := DateRange{Start: "2026-07-14", End: "2026-07-20"}
		assert.True(t, Overlaps(a, b))
		assert.True(t, Overlaps(b, a))
	})

	t.Run("Touching endpoints overlap", func(t *testing.T) {
		b := DateRange{Start: "2026-07-15", End: "2026-07-18"}
		assert.True(t, Overlaps(a, b))
		assert.True(t, Overlaps(b, a))
	})

	t.Run("Adjacent days do not overlap", func(t *testing.T) {
		b := DateRange{Start: "2026-07-16", End: "2026-07-18"}
		assert.False(t, Overlaps(a, b))
		assert.False(t, Overlaps(b, a))
	})

	t.Run("Containment overlaps", func(t *testing.T) {
		b := DateRange{Start: "2026-07-11", End: "2026-07-12"}
		assert.True(t, Overlaps(a, b))
		assert.True(t, Overlaps(b, a))
	})

	t.Run("Single-day ranges", func(t *testing.T) {
		day := DateRange{Start: "2026-07-10", End: "2026-07-10"}
		assert.True(t, Overlaps(a, day))
		assert.False(t, Overlaps(day, DateRange{Start: "2026-07-11", End: "2026-07-11"}))
	})
}

func TestContains(t *testing.T) {
	r := DateRange{Start: "2026-07-10", End: "2026-07-15"}
	assert.True(t, r.Contains("2026-07-10"))
	assert.True(t, r.Contains("2026-07-15"))
	assert.True(t, r.Contains("2026-07-12"))
	assert.False(t, r.Contains("2026-07-09"))
	assert.False(t, r.Contains("2026-07-16"))
}

func TestFindConflicts(t *testing.T) {
	existing := []models.Reservation{
		{ID: 1, StartDate: "2026-07-01", EndDate: "2026-07-05"},
		{ID: 2, StartDate: "2026-07-10", EndDate: "2026-07-15"},
		{ID: 3, StartDate: "2026-07-20", EndDate: "2026-07-25"},
	}

	t.Run("Returns only overlapping reservations in input order", func(t *testing.T) {
		candidate := DateRange{Start: "2026-07-04", End: "2026-07-11"}
		conflicts := FindConflicts(candidate, existing, 0)
		assert.Len(t, conflicts, 2)
		assert.Equal(t, uint(1), conflicts[0].ID)
		assert.Equal(t, uint(2), conflicts[1].ID)
	})

	t.Run("Skips the excluded reservation", func(t *testing.T) {
		candidate := DateRange{Start: "2026-07-10", End: "2026-07-15"}
		conflicts := FindConflicts(candidate, existing, 2)
		assert.Empty(t, conflicts)
	})

	t.Run("Zero excludeID skips nothing", func(t *testing.T) {
		candidate := DateRange{Start: "2026-07-10", End: "2026-07-15"}
		conflicts := FindConflicts(candidate, existing, 0)
		assert.Len(t, conflicts, 1)
		assert.Equal(t, uint(2), conflicts[0].ID)
	})

	t.Run("No conflicts yields empty non-nil slice", func(t *testing.T) {
		candidate := DateRange{Start: "2026-08-01", End: "2026-08-05"}
		conflicts := FindConflicts(candidate, existing, 0)
		assert.NotNil(t, conflicts)
		assert.Empty(t, conflicts)
	})
}
