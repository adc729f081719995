package utils

import (
	"cabin/src/config"
	"cabin/src/models"
	"time"
)

// MonthGridSize is the fixed number of cells in a rendered month: six full
// weeks, Sunday-first, regardless of month length or starting weekday.
const MonthGridSize = 42

type CalendarDay struct {
	Date              string               `json:"date"`
	IsCurrentMonth    bool                 `json:"is_current_month"`
	IsToday           bool                 `json:"is_today"`
	IsInSelectedRange bool                 `json:"is_in_selected_range"`
	IsConflicted      bool                 `json:"is_conflicted"`
	Reservations      []models.Reservation `json:"reservations,omitempty"`
}

// BuildMonthGrid derives the 42-cell display model for one month. today is an
// ISO date so callers (and tests) control the clock. selected is the current
// UI selection, nil when nothing is selected; excludeID names the reservation
// being edited so its own days never count as conflicts.
func BuildMonthGrid(year int, month time.Month, today string, reservations []models.Reservation, selected *DateRange, excludeID uint) []CalendarDay {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lead := int(first.Weekday())
	start := first.AddDate(0, 0, -lead)

	days := make([]CalendarDay, 0, MonthGridSize)
	for i := 0; i < MonthGridSize; i++ {
		d := start.AddDate(0, 0, i)
		iso := d.Format(config.DATE_PARSE_FORMAT)
		day := CalendarDay{
			Date:           iso,
			IsCurrentMonth: d.Month() == month,
			IsToday:        iso == today,
		}
		dayRange := DateRange{Start: iso, End: iso}
		for _, r := range reservations {
			if RangeOf(&r).Contains(iso) {
				day.Reservations = append(day.Reservations, r)
			}
		}
		if selected != nil && selected.Contains(iso) {
			day.IsInSelectedRange = true
			if len(FindConflicts(dayRange, day.Reservations, excludeID)) > 0 {
				day.IsConflicted = true
			}
		}
		days = append(days, day)
	}
	return days
}

// MonthGridRange returns the inclusive date range the 42-cell grid for a
// month covers, for fetching the reservations that can appear on it.
func MonthGridRange(year int, month time.Month) DateRange {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lead := int(first.Weekday())
	start := first.AddDate(0, 0, -lead)
	end := start.AddDate(0, 0, MonthGridSize-1)
	return DateRange{
		Start: start.Format(config.DATE_PARSE_FORMAT),
		End:   end.Format(config.DATE_PARSE_FORMAT),
	}
}

type SelectionPhase string

const (
	SelectionIdle         SelectionPhase = "idle"
	SelectionSelectingEnd SelectionPhase = "selecting_end"
)

// SelectionState is the two-click range-selection machine. Idle holds no
// anchor; SelectingEnd remembers the first clicked date until the second
// click closes the range.
type SelectionState struct {
	Phase  SelectionPhase `json:"phase"`
	Anchor string         `json:"anchor,omitempty"`
}

func NewSelection() SelectionState {
	return SelectionState{Phase: SelectionIdle}
}

// Click advances the machine with a calendar click and returns the resulting
// selection range. The first click collapses the range to the clicked day;
// the second closes it, normalized so Start <= End regardless of click order.
func (s SelectionState) Click(date string) (SelectionState, DateRange) {
	switch s.Phase {
	case SelectionSelectingEnd:
		start, end := s.Anchor, date
		if end < start {
			start, end = end, start
		}
		return SelectionState{Phase: SelectionIdle}, DateRange{Start: start, End: end}
	default:
		return SelectionState{Phase: SelectionSelectingEnd, Anchor: date}, DateRange{Start: date, End: date}
	}
}

// SyncManual re-synchronizes the selection from the text date inputs. Manual
// input always wins over calendar clicks and never transitions the phase.
func (s SelectionState) SyncManual(start string, end string) (SelectionState, DateRange) {
	if end != "" && end < start {
		start, end = end, start
	}
	if end == "" {
		end = start
	}
	return s, DateRange{Start: start, End: end}
}
