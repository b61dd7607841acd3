package models

import (
	"errors"
	"fmt"
	"strings"
)

// Unit selects the measurement system for both the provider request and display symbols.
type Unit string

const (
	UnitMetric   Unit = "metric"
	UnitImperial Unit = "imperial"
)

// ErrInvalidUnit is returned by ParseUnit for anything but metric or imperial.
var ErrInvalidUnit = errors.New("invalid unit")

// ParseUnit parses s case-insensitively.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case UnitMetric:
		return UnitMetric, nil
	case UnitImperial:
		return UnitImperial, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidUnit, s)
}

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	return u == UnitMetric || u == UnitImperial
}

func (u Unit) TemperatureSymbol() string {
	if u == UnitImperial {
		return "°F"
	}
	return "°C"
}

func (u Unit) SpeedSymbol() string {
	if u == UnitImperial {
		return "mph"
	}
	return "km/h"
}

func (u Unit) DistanceSymbol() string {
	if u == UnitImperial {
		return "mi"
	}
	return "km"
}

func (u Unit) PressureSymbol() string {
	if u == UnitImperial {
		return "inHg"
	}
	return "mb"
}

func (u Unit) PrecipitationSymbol() string {
	if u == UnitImperial {
		return "in"
	}
	return "mm"
}
