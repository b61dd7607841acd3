package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LocationID is the display identifier of a place. The search API returns
// numeric ids while persisted favorites may carry a derived key, so decoding
// accepts either a JSON string or a JSON number.
type LocationID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *LocationID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = LocationID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("location id: %w", err)
	}
	*id = LocationID(n.String())
	return nil
}

// Location is a geographic place. Identity is derived by Key, never stored.
type Location struct {
	ID      LocationID `json:"id,omitempty"`
	Name    string     `json:"name"`
	Country string     `json:"country"`
	Region  string     `json:"region,omitempty"`
	State   string     `json:"state,omitempty"`
	Lat     *float64   `json:"lat,omitempty"`
	Lon     *float64   `json:"lon,omitempty"`
}

// LocationKey is the identity string produced by Key.
type LocationKey = string

// Key returns the canonical identity of l. See Key.
func (l Location) Key() LocationKey {
	return Key(l)
}

// HasCoordinates reports whether both Lat and Lon are set. 0,0 counts as set.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Normalized returns a copy of l with ID defaulted to the derived key when
// empty. Coordinates are copied so the result shares no pointers with l.
func (l Location) Normalized() Location {
	out := Location{
		ID:      l.ID,
		Name:    l.Name,
		Country: l.Country,
		Region:  l.Region,
		State:   l.State,
	}
	if l.Lat != nil {
		out.Lat = Float(*l.Lat)
	}
	if l.Lon != nil {
		out.Lon = Float(*l.Lon)
	}
	if out.ID == "" {
		out.ID = LocationID(Key(out))
	}
	return out
}

// Key derives the identity string for a location: both coordinates rounded
// to 3 decimals and joined by a comma when both are present, otherwise the
// lower-cased name. Locations within ~0.0005° collapse to the same key.
func Key(l Location) LocationKey {
	if !l.HasCoordinates() {
		return strings.ToLower(l.Name)
	}
	return fixed3(*l.Lat) + "," + fixed3(*l.Lon)
}

// fixed3 formats v with 3 decimals, rounding exact ties away from zero and
// printing negative zero as "0.000".
func fixed3(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	v = math.Abs(v)
	// Only odd multiples of 1/16 sit exactly on a 3-decimal midpoint.
	if t := v * 16; t == math.Trunc(t) && math.Mod(t, 2) == 1 {
		v = math.Nextafter(v, math.Inf(1))
	}
	return sign + strconv.FormatFloat(v, 'f', 3, 64)
}

// Float returns a pointer to v. Handy for building Locations in literals.
func Float(v float64) *float64 {
	return &v
}
