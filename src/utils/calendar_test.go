package utils

import (
	"cabin/src/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildMonthGrid(t *testing.T) {
	// July 2026 starts on a Wednesday, so the grid leads with 3 June days
	days := BuildMonthGrid(2026, time.July, "2026-07-04", nil, nil, 0)

	assert.Len(t, days, MonthGridSize)
	assert.Equal(t, "2026-06-28", days[0].Date)
	assert.False(t, days[0].IsCurrentMonth)
	assert.Equal(t, "2026-07-01", days[3].Date)
	assert.True(t, days[3].IsCurrentMonth)
	assert.Equal(t, "2026-08-08", days[41].Date)
	assert.False(t, days[41].IsCurrentMonth)

	var todays int
	for _, d := range days {
		if d.IsToday {
			todays++
			assert.Equal(t, "2026-07-04", d.Date)
		}
	}
	assert.Equal(t, 1, todays)
}

func TestBuildMonthGridReservations(t *testing.T) {
	reservations := []models.Reservation{
		{ID: 7, StartDate: "2026-07-10", EndDate: "2026-07-12"},
	}

	t.Run("Reservations land on their days", func(t *testing.T) {
		days := BuildMonthGrid(2026, time.July, "2026-07-04", reservations, nil, 0)
		byDate := map[string]CalendarDay{}
		for _, d := range days {
			byDate[d.Date] = d
		}
		assert.Len(t, byDate["2026-07-10"].Reservations, 1)
		assert.Len(t, byDate["2026-07-12"].Reservations, 1)
		assert.Empty(t, byDate["2026-07-13"].Reservations)
	})

	t.Run("Selection marks conflicted days", func(t *testing.T) {
		selected := &DateRange{Start: "2026-07-11", End: "2026-07-14"}
		days := BuildMonthGrid(2026, time.July, "2026-07-04", reservations, selected, 0)
		byDate := map[string]CalendarDay{}
		for _, d := range days {
			byDate[d.Date] = d
		}
		assert.True(t, byDate["2026-07-11"].IsInSelectedRange)
		assert.True(t, byDate["2026-07-11"].IsConflicted)
		assert.True(t, byDate["2026-07-14"].IsInSelectedRange)
		assert.False(t, byDate["2026-07-14"].IsConflicted)
		assert.False(t, byDate["2026-07-10"].IsInSelectedRange)
	})

	t.Run("Excluded reservation never conflicts with itself", func(t *testing.T) {
		selected := &DateRange{Start: "2026-07-10", End: "2026-07-12"}
		days := BuildMonthGrid(2026, time.July, "2026-07-04", reservations, selected, 7)
		for _, d := range days {
			assert.False(t, d.IsConflicted, d.Date)
		}
	})
}

func TestMonthGridRange(t *testing.T) {
	window := MonthGridRange(2026, time.July)
	assert.Equal(t, "2026-06-28", window.Start)
	assert.Equal(t, "2026-08-08", window.End)

	// A Sunday-starting month has no lead days
	window = MonthGridRange(2026, time.February)
	assert.Equal(t, "2026-02-01", window.Start)
	assert.Equal(t, "2026-03-14", window.End)
}

func TestSelectionClicks(t *testing.T) {
	s := NewSelection()
	assert.Equal(t, SelectionIdle, s.Phase)

	s, r := s.Click("2026-07-10")
	assert.Equal(t, SelectionSelectingEnd, s.Phase)
	assert.Equal(t, DateRange{Start: "2026-07-10", End: "2026-07-10"}, r)

	s, r = s.Click("2026-07-14")
	assert.Equal(t, SelectionIdle, s.Phase)
	assert.Equal(t, DateRange{Start: "2026-07-10", End: "2026-07-14"}, r)
}

func TestSelectionClickBackwards(t *testing.T) {
	s := NewSelection()
	s, _ = s.Click("2026-07-14")
	s, r := s.Click("2026-07-10")
	assert.Equal(t, SelectionIdle, s.Phase)
	assert.Equal(t, DateRange{Start: "2026-07-10", End: "2026-07-14"}, r)
}

func TestSelectionSyncManual(t *testing.T) {
	s := NewSelection()
	s, _ = s.Click("2026-07-01")

	t.Run("Manual input normalizes reversed dates", func(t *testing.T) {
		next, r := s.SyncManual("2026-07-20", "2026-07-18")
		assert.Equal(t, s.Phase, next.Phase)
		assert.Equal(t, DateRange{Start: "2026-07-18", End: "2026-07-20"}, r)
	})

	t.Run("Missing end collapses to a single day", func(t *testing.T) {
		_, r := s.SyncManual("2026-07-20", "")
		assert.Equal(t, DateRange{Start: "2026-07-20", End: "2026-07-20"}, r)
	})
}
