package httpapi

import (
	"fmt"
	"time"

	"github.com/i474232898/current-weather/internal/weather"
)

// recordView is a WeatherRecord prepared for display. Temperatures are
// converted to Celsius; the *Display fields are preformatted strings.
type recordView struct {
	Name    string `json:"name"`
	Country string `json:"country"`

	TemperatureC float64 `json:"temperatureC"`
	TempMinC     float64 `json:"tempMinC"`
	TempMaxC     float64 `json:"tempMaxC"`
	FeelsLikeC   float64 `json:"feelsLikeC"`

	TemperatureDisplay string `json:"temperatureDisplay"`
	TempMinDisplay     string `json:"tempMinDisplay"`
	TempMaxDisplay     string `json:"tempMaxDisplay"`

	Humidity    float64 `json:"humidityPercent"`
	Pressure    float64 `json:"pressureHpa"`
	SeaLevel    float64 `json:"seaLevelHpa"`
	GroundLevel float64 `json:"groundLevelHpa"`
	WindSpeed   float64 `json:"windSpeed"`
	WindDeg     float64 `json:"windDeg"`
	Clouds      int     `json:"cloudsPercent"`
	Visibility  int     `json:"visibilityMeters"`

	Condition   weather.Condition `json:"condition"`
	Description string            `json:"description,omitempty"`
	Icon        string            `json:"icon,omitempty"`
	IconURL     string            `json:"iconUrl,omitempty"`

	ObservedAt time.Time `json:"observedAt"`
	LocalTime  string    `json:"localTime"`
}

func newRecordView(r weather.WeatherRecord) *recordView {
	v := &recordView{
		Name:         r.Name,
		Country:      r.Sys.Country,
		TemperatureC: weather.KelvinToCelsius(r.Main.Temp),
		TempMinC:     weather.KelvinToCelsius(r.Main.TempMin),
		TempMaxC:     weather.KelvinToCelsius(r.Main.TempMax),
		FeelsLikeC:   weather.KelvinToCelsius(r.Main.FeelsLike),
		Humidity:     r.Main.Humidity,
		Pressure:     r.Main.Pressure,
		SeaLevel:     r.Main.SeaLevel,
		GroundLevel:  r.Main.GrndLevel,
		WindSpeed:    r.Wind.Speed,
		WindDeg:      r.Wind.Deg,
		Clouds:       r.Clouds.All,
		Visibility:   r.Visibility,
		Condition:    r.PrimaryCondition(),
		Icon:         r.Icon(),
		IconURL:      weather.IconURL(r.Icon()),
		ObservedAt:   r.ObservedAt(),
		LocalTime:    r.LocalTime().Format("15:04 Mon 02 Jan"),
	}
	v.TemperatureDisplay = fmt.Sprintf("%.1f°C", v.TemperatureC)
	v.TempMinDisplay = fmt.Sprintf("%.2f°C", v.TempMinC)
	v.TempMaxDisplay = fmt.Sprintf("%.2f°C", v.TempMaxC)
	if len(r.Weather) > 0 {
		v.Description = r.Weather[0].Description
	}
	return v
}

// stateView is the JSON form of a FetchState.
type stateView struct {
	Status    string      `json:"status"`
	City      string      `json:"city"`
	FetchID   string      `json:"fetchId"`
	Seq       uint64      `json:"seq"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Message   string      `json:"message,omitempty"`
	Weather   *recordView `json:"weather,omitempty"`

	// LastSuccess keeps the previous data on screen while loading or after a failure.
	LastSuccess *recordView `json:"lastSuccess,omitempty"`
}

func newStateView(s weather.FetchState, last weather.FetchState, hasLast bool) stateView {
	v := stateView{
		Status:    s.Status.String(),
		City:      s.City,
		FetchID:   s.FetchID,
		Seq:       s.Seq,
		UpdatedAt: s.UpdatedAt,
	}
	if rec, ok := s.Record(); ok {
		v.Weather = newRecordView(rec)
	}
	if msg, ok := s.Message(); ok {
		v.Message = msg
	}
	if v.Weather == nil && hasLast {
		if rec, ok := last.Record(); ok {
			v.LastSuccess = newRecordView(rec)
		}
	}
	return v
}
