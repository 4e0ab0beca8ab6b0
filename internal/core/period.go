package core

import (
	"fmt"
	"strings"
	"time"
)

// Period tokens shared by the report exports.
const (
	PeriodMonth    = "1m"
	PeriodQuarter  = "3m"
	PeriodHalfYear = "6m"
	PeriodYear     = "1y"
	PeriodAll      = "all"
)

// Window is a half-open time range [From, To). A zero bound is unbounded.
type Window struct {
	From  time.Time
	To    time.Time
	Label string
}

// Unbounded reports whether the window has neither bound.
func (w Window) Unbounded() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// MonthStart returns midnight of the first day of t's month in t's location.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// DayStart returns midnight of t's day in t's location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddMonths moves a month start by n calendar months.
func AddMonths(monthStart time.Time, n int) time.Time {
	y, m, _ := monthStart.Date()
	return time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, monthStart.Location())
}

// MonthWindow covers the calendar month containing t.
func MonthWindow(t time.Time) Window {
	start := MonthStart(t)
	return Window{From: start, To: AddMonths(start, 1), Label: start.Format("January 2006")}
}

// YearWindow covers the calendar year in loc.
func YearWindow(year int, loc *time.Location) Window {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return Window{From: start, To: start.AddDate(1, 0, 0), Label: fmt.Sprintf("Year %d", year)}
}

// DayWindow covers the calendar day containing t.
func DayWindow(t time.Time) Window {
	start := DayStart(t)
	return Window{From: start, To: start.AddDate(0, 0, 1), Label: start.Format("02")}
}

// NormalizePeriod maps an empty token to def and lowercases the rest.
// Unknown tokens are kept; PeriodWindow treats them as all time.
func NormalizePeriod(token, def string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return def
	}
	return token
}

// PeriodWindow resolves an export period token relative to now.
//
// Windows only carry a lower bound: rows dated after now are included.
// Unknown tokens resolve to all time.
func PeriodWindow(token string, now time.Time) Window {
	today := DayStart(now)
	switch token {
	case PeriodMonth:
		return Window{From: MonthStart(today), Label: today.Format("January 2006")}
	case PeriodQuarter:
		return Window{From: MonthStart(today.AddDate(0, 0, -90)), Label: "Last 3 Months"}
	case PeriodHalfYear:
		return Window{From: MonthStart(today.AddDate(0, 0, -180)), Label: "Last 6 Months"}
	case PeriodYear:
		return Window{
			From:  time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location()),
			Label: fmt.Sprintf("Year %d", today.Year()),
		}
	default:
		return Window{Label: "All Time"}
	}
}

// MonthNav describes the month selector of the transaction list.
type MonthNav struct {
	All     bool
	Current time.Time
	Prev    time.Time
	Next    time.Time
	Label   string
}

// MonthKey renders the month in the YYYY-MM form used by query strings.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ParseMonthKey parses a YYYY-MM value into the first day of that month in loc.
func ParseMonthKey(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return t, nil
}

// ResolveMonthNav picks the active month from a YYYY-MM value, falling back
// to the month of now. all selects the unbounded view.
func ResolveMonthNav(monthParam string, all bool, now time.Time) MonthNav {
	if all {
		return MonthNav{All: true, Label: "All Time"}
	}
	current := MonthStart(now)
	if monthParam != "" {
		if t, err := ParseMonthKey(monthParam, now.Location()); err == nil {
			current = t
		}
	}
	return MonthNav{
		Current: current,
		Prev:    AddMonths(current, -1),
		Next:    AddMonths(current, 1),
		Label:   current.Format("January 2006"),
	}
}

// Window returns the filter window of the navigation state.
func (n MonthNav) Window() Window {
	if n.All {
		return Window{Label: n.Label}
	}
	return Window{From: n.Current, To: n.Next, Label: n.Label}
}

// Greeting returns the part of day used on the dashboard.
func Greeting(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Morning"
	case hour >= 12 && hour < 17:
		return "Afternoon"
	case hour >= 17 && hour < 21:
		return "Evening"
	default:
		return "Night"
	}
}
