package pentad

import (
	"fmt"
	"time"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
)

// PentadFor returns the pentad of t's month and day.
func (c *Calendar) PentadFor(t time.Time) (int, error) {
	b, err := c.Resolve(t)
	if err != nil {
		return 0, err
	}
	return b.Pentad, nil
}

// PentadForDay is PentadFor for a bare month and day. Day 29 of February is
// accepted; impossible dates are ErrInvalidInput.
func (c *Calendar) PentadForDay(month time.Month, day int) (int, error) {
	d := date(month, day)
	if d.Month() != month || d.Day() != day {
		return 0, fmt.Errorf("date %d-%d: %w", month, day, domain.ErrInvalidInput)
	}
	return c.PentadFor(d)
}

// HalfMonthFor returns the half-month interval holding t's month and day.
func (c *Calendar) HalfMonthFor(t time.Time) (HalfMonth, error) {
	d := normalize(t)
	h, ok := c.find(d)
	if !ok {
		return HalfMonth{}, fmt.Errorf("half-month for %s: %w", d.Format("Jan 2"), domain.ErrNotFound)
	}
	return h.clone(), nil
}

// Resolve maps t to its pentad, half-month, and scheme month.
func (c *Calendar) Resolve(t time.Time) (Bucket, error) {
	d := normalize(t)
	h, ok := c.find(d)
	if !ok {
		return Bucket{}, fmt.Errorf("pentad for %s: %w", d.Format("Jan 2"), domain.ErrNotFound)
	}
	return Bucket{Pentad: pentadWithin(h, d), HalfMonth: h.ID, Month: h.Month}, nil
}

func normalize(t time.Time) time.Time {
	return date(t.Month(), t.Day())
}

// find searches scheme months m, m-1, m+1 in that order, because a date at
// the end of a calendar month may open the next scheme month.
func (c *Calendar) find(d time.Time) (HalfMonth, bool) {
	m := int(d.Month())
	for _, candidate := range [...]int{m, m - 1, m + 1} {
		if candidate < 1 || candidate > 12 {
			continue
		}
		for _, h := range c.halfMonths[2*candidate-2 : 2*candidate] {
			if h.Contains(d) {
				return h, true
			}
		}
	}
	return HalfMonth{}, false
}

// pentadWithin splits h into consecutive five-day windows; the last pentad
// absorbs whatever remains.
func pentadWithin(h HalfMonth, d time.Time) int {
	for i, p := range h.Pentads[:len(h.Pentads)-1] {
		lo := h.Start.AddDate(0, 0, pentadDays*i)
		hi := lo.AddDate(0, 0, pentadDays-1)
		if !d.Before(lo) && !d.After(hi) {
			return p
		}
	}
	return h.Pentads[len(h.Pentads)-1]
}
