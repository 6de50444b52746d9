package pentad

import (
	"fmt"
	"time"
)

// Check walks every day of ReferenceYear and verifies that each resolves,
// that pentads never decrease, and that every pentad is reached.
func (c *Calendar) Check() error {
	seen := make([]bool, c.PentadCount()+1)
	prev := 1
	for d := date(time.January, 1); d.Year() == ReferenceYear; d = d.AddDate(0, 0, 1) {
		b, err := c.Resolve(d)
		if err != nil {
			return err
		}
		if b.Pentad < prev || b.Pentad > prev+1 {
			return fmt.Errorf("pentad jumps from %d to %d on %s", prev, b.Pentad, d.Format("Jan 2"))
		}
		prev = b.Pentad
		seen[b.Pentad] = true
	}
	for p := 1; p < len(seen); p++ {
		if !seen[p] {
			return fmt.Errorf("pentad %d is never reached", p)
		}
	}
	return nil
}
