package client

import (
	"math"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

type searchResult struct {
	ID      models.LocationID `json:"id"`
	Name    string            `json:"name"`
	Region  string            `json:"region"`
	Country string            `json:"country"`
	Lat     *float64          `json:"lat"`
	Lon     *float64          `json:"lon"`
}

type conditionPayload struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

// forecastResponse mirrors the subset of /forecast.json we consume. Each
// measurement comes in both unit systems; selection happens in normalize.
type forecastResponse struct {
	Location struct {
		Name    string  `json:"name"`
		Region  string  `json:"region"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		TzID    string  `json:"tz_id"`
	} `json:"location"`
	Current struct {
		TempC      float64          `json:"temp_c"`
		TempF      float64          `json:"temp_f"`
		FeelsLikeC float64          `json:"feelslike_c"`
		FeelsLikeF float64          `json:"feelslike_f"`
		DewPointC  *float64         `json:"dewpoint_c"`
		DewPointF  *float64         `json:"dewpoint_f"`
		Humidity   int              `json:"humidity"`
		PressureMb float64          `json:"pressure_mb"`
		PressureIn float64          `json:"pressure_in"`
		WindKph    float64          `json:"wind_kph"`
		WindMph    float64          `json:"wind_mph"`
		WindDegree int              `json:"wind_degree"`
		VisKm      float64          `json:"vis_km"`
		VisMiles   float64          `json:"vis_miles"`
		PrecipMm   float64          `json:"precip_mm"`
		PrecipIn   float64          `json:"precip_in"`
		Cloud      int              `json:"cloud"`
		UV         *float64         `json:"uv"`
		Condition  conditionPayload `json:"condition"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []forecastDay `json:"forecastday"`
	} `json:"forecast"`
}

type forecastDay struct {
	Date  string      `json:"date"`
	Day   *dayPayload `json:"day"`
	Astro struct {
		Sunrise string `json:"sunrise"`
		Sunset  string `json:"sunset"`
	} `json:"astro"`
	Hour []hourPayload `json:"hour"`
}

type dayPayload struct {
	MaxTempC          float64 `json:"maxtemp_c"`
	MaxTempF          float64 `json:"maxtemp_f"`
	MinTempC          float64 `json:"mintemp_c"`
	MinTempF          float64 `json:"mintemp_f"`
	AvgTempC          float64 `json:"avgtemp_c"`
	AvgTempF          float64 `json:"avgtemp_f"`
	MaxWindKph        float64 `json:"maxwind_kph"`
	MaxWindMph        float64 `json:"maxwind_mph"`
	TotalPrecipMm     float64 `json:"totalprecip_mm"`
	TotalPrecipIn     float64 `json:"totalprecip_in"`
	DailyChanceOfRain float64 `json:"daily_chance_of_rain"`
}

type hourPayload struct {
	TimeEpoch    int64            `json:"time_epoch"`
	TempC        float64          `json:"temp_c"`
	TempF        float64          `json:"temp_f"`
	FeelsLikeC   float64          `json:"feelslike_c"`
	FeelsLikeF   float64          `json:"feelslike_f"`
	Humidity     int              `json:"humidity"`
	WindKph      float64          `json:"wind_kph"`
	WindMph      float64          `json:"wind_mph"`
	WindDegree   int              `json:"wind_degree"`
	PrecipMm     float64          `json:"precip_mm"`
	PrecipIn     float64          `json:"precip_in"`
	ChanceOfRain float64          `json:"chance_of_rain"`
	Condition    conditionPayload `json:"condition"`
}

func mapSearchResults(results []searchResult) []models.Location {
	out := make([]models.Location, 0, len(results))
	for _, r := range results {
		loc := models.Location{
			ID:      r.ID,
			Name:    r.Name,
			Country: r.Country,
			Region:  r.Region,
			Lat:     r.Lat,
			Lon:     r.Lon,
		}
		out = append(out, loc.Normalized())
	}
	return out
}

// pick returns metric or imperial depending on unit.
func pick(unit models.Unit, metric, imperial float64) float64 {
	if unit == models.UnitImperial {
		return imperial
	}
	return metric
}

func pickPtr(unit models.Unit, metric, imperial *float64) *float64 {
	if unit == models.UnitImperial {
		return imperial
	}
	return metric
}

func normalizeForecast(resp forecastResponse, requested models.Location, unit models.Unit) models.WeatherBundle {
	tz := loadZone(resp.Location.TzID)
	cur := resp.Current

	current := models.CurrentConditions{
		Temperature:   pick(unit, cur.TempC, cur.TempF),
		FeelsLike:     pick(unit, cur.FeelsLikeC, cur.FeelsLikeF),
		Humidity:      cur.Humidity,
		Pressure:      pick(unit, cur.PressureMb, cur.PressureIn),
		WindSpeed:     pick(unit, cur.WindKph, cur.WindMph),
		WindDeg:       cur.WindDegree,
		Condition:     cur.Condition.Text,
		Description:   cur.Condition.Text,
		Icon:          iconName(cur.Condition.Icon),
		Visibility:    pick(unit, cur.VisKm, cur.VisMiles),
		Clouds:        cur.Cloud,
		DewPoint:      pickPtr(unit, cur.DewPointC, cur.DewPointF),
		UVIndex:       cur.UV,
		Precipitation: pick(unit, cur.PrecipMm, cur.PrecipIn),
	}
	if days := resp.Forecast.ForecastDay; len(days) > 0 {
		current.Sunrise = parseAstro(days[0].Date, days[0].Astro.Sunrise, tz)
		current.Sunset = parseAstro(days[0].Date, days[0].Astro.Sunset, tz)
	}

	var hourly []models.HourPoint
	var daily []models.DayPoint
	var missing []string
	for _, fd := range resp.Forecast.ForecastDay {
		for _, h := range fd.Hour {
			hourly = append(hourly, models.HourPoint{
				Time:          time.Unix(h.TimeEpoch, 0).UTC(),
				Temperature:   pick(unit, h.TempC, h.TempF),
				FeelsLike:     pick(unit, h.FeelsLikeC, h.FeelsLikeF),
				Humidity:      h.Humidity,
				WindSpeed:     pick(unit, h.WindKph, h.WindMph),
				WindDeg:       h.WindDegree,
				Precipitation: pick(unit, h.PrecipMm, h.PrecipIn),
				ChanceOfRain:  h.ChanceOfRain / 100,
				Condition:     h.Condition.Text,
				Icon:          iconName(h.Condition.Icon),
			})
		}
		if fd.Day == nil {
			missing = append(missing, fd.Date)
			continue
		}
		d := fd.Day
		daily = append(daily, models.DayPoint{
			Date:          fd.Date,
			MinTemp:       pick(unit, d.MinTempC, d.MinTempF),
			MaxTemp:       pick(unit, d.MaxTempC, d.MaxTempF),
			AvgTemp:       pick(unit, d.AvgTempC, d.AvgTempF),
			Precipitation: pick(unit, d.TotalPrecipMm, d.TotalPrecipIn),
			ChanceOfRain:  d.DailyChanceOfRain / 100,
			WindSpeed:     pick(unit, d.MaxWindKph, d.MaxWindMph),
		})
	}
	sort.SliceStable(hourly, func(i, j int) bool { return hourly[i].Time.Before(hourly[j].Time) })

	if len(missing) > 0 {
		want := make(map[string]struct{}, len(missing))
		for _, d := range missing {
			want[d] = struct{}{}
		}
		for _, d := range SynthesizeDaily(hourly, tz) {
			if _, ok := want[d.Date]; ok {
				daily = append(daily, d)
			}
		}
	}
	sort.SliceStable(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	loc := requested.Normalized()
	loc.Lat = models.Float(resp.Location.Lat)
	loc.Lon = models.Float(resp.Location.Lon)
	if loc.Name == "" {
		loc.Name = resp.Location.Name
	}
	if loc.Country == "" {
		loc.Country = resp.Location.Country
	}
	if loc.Region == "" {
		loc.Region = resp.Location.Region
	}

	if hourly == nil {
		hourly = []models.HourPoint{}
	}
	if daily == nil {
		daily = []models.DayPoint{}
	}
	return models.WeatherBundle{
		Location: loc,
		Current:  current,
		Forecast: models.ForecastBundle{Hourly: hourly, Daily: daily},
	}
}

// SynthesizeDaily groups hourly points by calendar date in tz and summarizes
// each group. hourly must be ascending by time; the result is ascending by date.
func SynthesizeDaily(hourly []models.HourPoint, tz *time.Location) []models.DayPoint {
	if tz == nil {
		tz = time.UTC
	}
	var out []models.DayPoint
	var group []models.HourPoint
	flush := func() {
		if len(group) == 0 {
			return
		}
		minT, maxT := math.Inf(1), math.Inf(-1)
		var sumT, sumWind, precip, chance float64
		for _, h := range group {
			minT = math.Min(minT, h.Temperature)
			maxT = math.Max(maxT, h.Temperature)
			sumT += h.Temperature
			sumWind += h.WindSpeed
			precip += h.Precipitation
			chance = math.Max(chance, h.ChanceOfRain)
		}
		n := float64(len(group))
		out = append(out, models.DayPoint{
			Date:          group[0].Time.In(tz).Format("2006-01-02"),
			MinTemp:       minT,
			MaxTemp:       maxT,
			AvgTemp:       sumT / n,
			Precipitation: precip,
			ChanceOfRain:  chance,
			WindSpeed:     sumWind / n,
		})
		group = group[:0]
	}
	current := ""
	for _, h := range hourly {
		date := h.Time.In(tz).Format("2006-01-02")
		if date != current {
			flush()
			current = date
		}
		group = append(group, h)
	}
	flush()
	return out
}

func loadZone(tzID string) *time.Location {
	if tzID == "" {
		return time.UTC
	}
	tz, err := time.LoadLocation(tzID)
	if err != nil {
		return time.UTC
	}
	return tz
}

// parseAstro combines a forecast date with an astro clock string such as
// "05:43 AM". Values like "No sunset" yield the zero time.
func parseAstro(date, clock string, tz *time.Location) time.Time {
	t, err := time.ParseInLocation("2006-01-02 03:04 PM", date+" "+strings.TrimSpace(clock), tz)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// iconName keeps the trailing file name of a provider icon URL ("//cdn.../day/116.png" -> "116.png").
func iconName(icon string) string {
	if icon == "" {
		return ""
	}
	return path.Base(icon)
}
