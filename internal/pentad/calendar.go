// Package pentad partitions the year into 24 half-months and 73 pentads
// following the historical marine climatology scheme, and resolves any
// month/day to its pentad.
//
// The partition is built once on a leap reference year so that February 29
// is addressable. Two seams break the regular 15-day rhythm: the half-month
// starting February 15 ends on March 1, and the half-month starting March 2
// runs to March 21 and carries a fourth pentad. Only month and day are
// meaningful; the year of any input date is discarded.
package pentad

import (
	"fmt"
	"time"

	"github.com/couchcryptid/ocean-grid-etl/internal/domain"
)

const (
	// ReferenceYear is the leap year the partition is laid on.
	ReferenceYear = 2016

	halfMonthDays  = 15
	pentadDays     = 5
	pentadsPerHalf = 3
)

// HalfMonth is one interval of the partition. Start and End are inclusive
// midnight UTC dates on ReferenceYear.
type HalfMonth struct {
	ID      int       `json:"id"`    // 1..24
	Month   int       `json:"month"` // scheme month, 1..12
	Half    int       `json:"half"`  // 1 or 2
	Pentads []int     `json:"pentads"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// Contains reports whether the normalized date d falls within the interval.
func (h HalfMonth) Contains(d time.Time) bool {
	return !d.Before(h.Start) && !d.After(h.End)
}

// Bucket is the result of resolving a date.
type Bucket struct {
	Pentad    int `json:"pentad"`
	HalfMonth int `json:"half_month"`
	Month     int `json:"month"`
}

// Calendar is the immutable partition. It is safe for concurrent use.
type Calendar struct {
	halfMonths []HalfMonth
	// pentadHalf maps pentad-1 to the index of its half-month.
	pentadHalf []int
}

// Build lays out the partition on ReferenceYear.
func Build() *Calendar {
	var halves []HalfMonth
	window := []int{-2, -1, 0}
	day := date(time.January, 1)

	for day.Year() == ReferenceYear {
		end := day.AddDate(0, 0, halfMonthDays-1)
		pentads := make([]int, 0, pentadsPerHalf+1)
		for _, p := range window[len(window)-pentadsPerHalf:] {
			pentads = append(pentads, p+pentadsPerHalf)
		}

		switch {
		case day.Equal(date(time.February, 15)):
			end = date(time.March, 1)
		case day.Equal(date(time.March, 2)):
			end = date(time.March, 21)
			pentads = append(pentads, pentads[len(pentads)-1]+1)
		}

		id := len(halves) + 1
		halves = append(halves, HalfMonth{
			ID:      id,
			Month:   (id + 1) / 2,
			Half:    (id-1)%2 + 1,
			Pentads: pentads,
			Start:   day,
			End:     end,
		})
		window = pentads
		day = end.AddDate(0, 0, 1)
	}

	c := &Calendar{halfMonths: halves}
	for i, h := range halves {
		for range h.Pentads {
			c.pentadHalf = append(c.pentadHalf, i)
		}
	}
	return c
}

func date(m time.Month, d int) time.Time {
	return time.Date(ReferenceYear, m, d, 0, 0, 0, 0, time.UTC)
}

// PentadCount is the number of pentads in the year.
func (c *Calendar) PentadCount() int { return len(c.pentadHalf) }

// HalfMonths returns a copy of every interval in order.
func (c *Calendar) HalfMonths() []HalfMonth {
	out := make([]HalfMonth, len(c.halfMonths))
	for i, h := range c.halfMonths {
		out[i] = h.clone()
	}
	return out
}

// Month returns the two half-months of scheme month m, or nil when m is
// outside 1..12.
func (c *Calendar) Month(m int) []HalfMonth {
	if m < 1 || m*2 > len(c.halfMonths) {
		return nil
	}
	return []HalfMonth{c.halfMonths[2*m-2].clone(), c.halfMonths[2*m-1].clone()}
}

// HalfMonth returns the interval with the given ID.
func (c *Calendar) HalfMonth(id int) (HalfMonth, error) {
	if id < 1 || id > len(c.halfMonths) {
		return HalfMonth{}, fmt.Errorf("half-month %d: %w", id, domain.ErrInvalidInput)
	}
	return c.halfMonths[id-1].clone(), nil
}

// PentadsForHalfMonth lists the pentads of half-month id.
func (c *Calendar) PentadsForHalfMonth(id int) ([]int, error) {
	h, err := c.HalfMonth(id)
	if err != nil {
		return nil, err
	}
	return h.Pentads, nil
}

// HalfMonthForPentad returns the ID of the half-month holding pentad p.
func (c *Calendar) HalfMonthForPentad(p int) (int, error) {
	if p < 1 || p > len(c.pentadHalf) {
		return 0, fmt.Errorf("pentad %d: %w", p, domain.ErrInvalidInput)
	}
	return c.halfMonths[c.pentadHalf[p-1]].ID, nil
}

// PentadDates returns the inclusive date span of pentad p on ReferenceYear.
func (c *Calendar) PentadDates(p int) (start, end time.Time, err error) {
	if p < 1 || p > len(c.pentadHalf) {
		return time.Time{}, time.Time{}, fmt.Errorf("pentad %d: %w", p, domain.ErrInvalidInput)
	}
	h := c.halfMonths[c.pentadHalf[p-1]]
	i := p - h.Pentads[0]
	start = h.Start.AddDate(0, 0, pentadDays*i)
	if i == len(h.Pentads)-1 {
		return start, h.End, nil
	}
	return start, start.AddDate(0, 0, pentadDays-1), nil
}

func (h HalfMonth) clone() HalfMonth {
	h.Pentads = append([]int(nil), h.Pentads...)
	return h
}
