package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// YearRange is an inclusive span of calendar years. A single year is a
// range whose endpoints are equal.
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// NewYearRange validates that from <= to.
func NewYearRange(from, to int) (YearRange, error) {
	if from > to {
		return YearRange{}, fmt.Errorf("year range %d-%d: %w", from, to, ErrInvalidInput)
	}
	return YearRange{From: from, To: to}, nil
}

// SingleYear is the range covering only y.
func SingleYear(y int) YearRange {
	return YearRange{From: y, To: y}
}

// ParseYearRange accepts "1998" or "1990-2000".
func ParseYearRange(s string) (YearRange, error) {
	s = strings.TrimSpace(s)
	fromStr, toStr, isRange := strings.Cut(s, "-")
	from, err := strconv.Atoi(strings.TrimSpace(fromStr))
	if err != nil {
		return YearRange{}, fmt.Errorf("year range %q: %w", s, ErrInvalidInput)
	}
	if !isRange {
		return SingleYear(from), nil
	}
	to, err := strconv.Atoi(strings.TrimSpace(toStr))
	if err != nil {
		return YearRange{}, fmt.Errorf("year range %q: %w", s, ErrInvalidInput)
	}
	return NewYearRange(from, to)
}

func (r YearRange) Contains(year int) bool {
	return year >= r.From && year <= r.To
}

// Years lists every year in the range in ascending order.
func (r YearRange) Years() []int {
	if r.To < r.From {
		return nil
	}
	out := make([]int, 0, r.To-r.From+1)
	for y := r.From; y <= r.To; y++ {
		out = append(out, y)
	}
	return out
}

func (r YearRange) String() string {
	if r.From == r.To {
		return strconv.Itoa(r.From)
	}
	return strconv.Itoa(r.From) + "-" + strconv.Itoa(r.To)
}
