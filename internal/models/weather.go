package models

import "time"

// CurrentConditions is the normalized current-weather snapshot. Numeric
// values are in the unit system the bundle was fetched with.
type CurrentConditions struct {
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feelsLike"`
	Humidity      int       `json:"humidity"`
	Pressure      float64   `json:"pressure"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDeg       int       `json:"windDeg"`
	Condition     string    `json:"condition"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	Visibility    float64   `json:"visibility"`
	Sunrise       time.Time `json:"sunrise"`
	Sunset        time.Time `json:"sunset"`
	Clouds        int       `json:"clouds"`
	DewPoint      *float64  `json:"dewPoint,omitempty"`
	UVIndex       *float64  `json:"uvIndex,omitempty"`
	Precipitation float64   `json:"precipitation"`
}

// HourPoint is one hourly forecast sample.
type HourPoint struct {
	Time          time.Time `json:"time"`
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feelsLike"`
	Humidity      int       `json:"humidity"`
	WindSpeed     float64   `json:"windSpeed"`
	WindDeg       int       `json:"windDeg"`
	Precipitation float64   `json:"precipitation"`
	ChanceOfRain  float64   `json:"chanceOfRain"`
	Condition     string    `json:"condition"`
	Icon          string    `json:"icon"`
}

// DayPoint is one daily forecast summary. Date is YYYY-MM-DD.
type DayPoint struct {
	Date          string  `json:"date"`
	MinTemp       float64 `json:"minTemp"`
	MaxTemp       float64 `json:"maxTemp"`
	AvgTemp       float64 `json:"avgTemp"`
	Precipitation float64 `json:"precipitation"`
	ChanceOfRain  float64 `json:"chanceOfRain"`
	WindSpeed     float64 `json:"windSpeed"`
}

// ForecastBundle holds hourly points ascending by time and daily points ascending by date.
type ForecastBundle struct {
	Hourly []HourPoint `json:"hourly"`
	Daily  []DayPoint  `json:"daily"`
}

// WeatherBundle is what the gateway returns for one location.
type WeatherBundle struct {
	Location Location          `json:"location"`
	Current  CurrentConditions `json:"current"`
	Forecast ForecastBundle    `json:"forecast"`
}

// User is the signed-in profile handed over by the identity provider.
type User struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}
