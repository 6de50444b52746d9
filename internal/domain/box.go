package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// BoxID identifies a grid box by its band index and its dense longitude
// index within that band. The "{lat}_{lon}" text form exists for storage
// keys, logs, and the HTTP API.
type BoxID struct {
	Lat int `json:"lat_index"`
	Lon int `json:"lon_index"`
}

func (b BoxID) String() string {
	return strconv.Itoa(b.Lat) + "_" + strconv.Itoa(b.Lon)
}

// ParseBoxID decodes the "{lat}_{lon}" form produced by String.
func ParseBoxID(s string) (BoxID, error) {
	latStr, lonStr, ok := strings.Cut(s, "_")
	if !ok {
		return BoxID{}, fmt.Errorf("box name %q: missing separator: %w", s, ErrInvalidInput)
	}
	lat, err := strconv.Atoi(latStr)
	if err != nil || lat < 0 {
		return BoxID{}, fmt.Errorf("box name %q: bad latitude index: %w", s, ErrInvalidInput)
	}
	lon, err := strconv.Atoi(lonStr)
	if err != nil || lon < 0 {
		return BoxID{}, fmt.Errorf("box name %q: bad longitude index: %w", s, ErrInvalidInput)
	}
	return BoxID{Lat: lat, Lon: lon}, nil
}

func (b BoxID) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *BoxID) UnmarshalText(text []byte) error {
	id, err := ParseBoxID(string(text))
	if err != nil {
		return err
	}
	*b = id
	return nil
}
