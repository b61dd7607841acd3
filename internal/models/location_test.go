package models

import (
	"encoding/json"
	"math"
	"testing"
)

// TestKey verifies key derivation for coordinate and name based locations.
func TestKey(t *testing.T) {
	tests := []struct {
		name string
		loc  Location
		want string
	}{
		{
			name: "coordinates rounded to 3 decimals",
			loc:  Location{Name: "London", Lat: Float(51.5074), Lon: Float(-0.1278)},
			want: "51.507,-0.128",
		},
		{
			name: "zero coordinates are valid",
			loc:  Location{Lat: Float(0), Lon: Float(0)},
			want: "0.000,0.000",
		},
		{
			name: "name fallback is lower-cased",
			loc:  Location{Name: "New York"},
			want: "new york",
		},
		{
			name: "only one coordinate falls back to name",
			loc:  Location{Name: "Paris", Lat: Float(48.85)},
			want: "paris",
		},
		{
			name: "nothing set yields empty key",
			loc:  Location{},
			want: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Key(tc.loc); got != tc.want {
				t.Fatalf("Key(%+v) = %q, want %q", tc.loc, got, tc.want)
			}
		})
	}
}

// TestKey_RoundingCollapse verifies that nearby coordinates intentionally share one key
// and that repeated calls are deterministic.
func TestKey_RoundingCollapse(t *testing.T) {
	a := Location{Name: "London", Lat: Float(51.5074), Lon: Float(-0.1278)}
	b := Location{Name: "London Eye", Lat: Float(51.5073), Lon: Float(-0.1279)}
	if Key(a) != Key(a) {
		t.Fatal("Key is not deterministic")
	}
	if Key(a) != Key(b) {
		t.Errorf("Key(a) = %q, Key(b) = %q, want equal after rounding", Key(a), Key(b))
	}
}

// TestKey_Midpoints verifies exact 3-decimal midpoints round away from zero and
// negative zero prints unsigned.
func TestKey_Midpoints(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     string
	}{
		{51.5625, 0.0625, "51.563,0.063"},
		{-51.5625, -0.0625, "-51.563,-0.063"},
		{0.125, 0.1875, "0.125,0.188"},
		{1.0005, -1.0005, "1.000,-1.000"},
		{math.Copysign(0, -1), 0, "0.000,0.000"},
	}
	for _, tc := range tests {
		loc := Location{Lat: Float(tc.lat), Lon: Float(tc.lon)}
		if got := Key(loc); got != tc.want {
			t.Errorf("Key(%v,%v) = %q, want %q", tc.lat, tc.lon, got, tc.want)
		}
	}
}

// TestKey_ZeroDistinctFromNameless verifies 0,0 does not collapse into the empty-name key.
func TestKey_ZeroDistinctFromNameless(t *testing.T) {
	zero := Location{Lat: Float(0), Lon: Float(0)}
	nameless := Location{}
	if Key(zero) == Key(nameless) {
		t.Errorf("Key(0,0) = Key(nameless) = %q, want distinct", Key(zero))
	}
}

// TestLocation_Normalized verifies the id default and pointer isolation.
func TestLocation_Normalized(t *testing.T) {
	lat, lon := 48.8566, 2.3522
	in := Location{Name: "Paris", Country: "France", Lat: &lat, Lon: &lon}
	out := in.Normalized()
	if out.ID != "48.857,2.352" {
		t.Errorf("Normalized().ID = %q, want derived key", out.ID)
	}
	lat = 0
	if *out.Lat != 48.8566 {
		t.Error("Normalized() shares coordinate pointers with input")
	}

	withID := Location{ID: "2801268", Name: "London"}.Normalized()
	if withID.ID != "2801268" {
		t.Errorf("Normalized().ID = %q, want existing id kept", withID.ID)
	}
}

// TestLocationID_UnmarshalJSON verifies numeric and string ids decode.
func TestLocationID_UnmarshalJSON(t *testing.T) {
	var locs []Location
	raw := `[{"id":2801268,"name":"London"},{"id":"paris","name":"Paris"},{"name":"Rome"}]`
	if err := json.Unmarshal([]byte(raw), &locs); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := []LocationID{"2801268", "paris", ""}
	for i, w := range want {
		if locs[i].ID != w {
			t.Errorf("locs[%d].ID = %q, want %q", i, locs[i].ID, w)
		}
	}
}
