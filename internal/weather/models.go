package weather

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Condition is the cloud-state descriptor OpenWeather reports in weather[].main.
type Condition string

const (
	ConditionUnknown      Condition = "Unknown"
	ConditionThunderstorm Condition = "Thunderstorm"
	ConditionDrizzle      Condition = "Drizzle"
	ConditionRain         Condition = "Rain"
	ConditionSnow         Condition = "Snow"
	ConditionMist         Condition = "Mist"
	ConditionSmoke        Condition = "Smoke"
	ConditionHaze         Condition = "Haze"
	ConditionDust         Condition = "Dust"
	ConditionFog          Condition = "Fog"
	ConditionSand         Condition = "Sand"
	ConditionAsh          Condition = "Ash"
	ConditionSquall       Condition = "Squall"
	ConditionTornado      Condition = "Tornado"
	ConditionClear        Condition = "Clear"
	ConditionClouds       Condition = "Clouds"
)

var knownConditions = map[string]Condition{
	"Thunderstorm": ConditionThunderstorm,
	"Drizzle":      ConditionDrizzle,
	"Rain":         ConditionRain,
	"Snow":         ConditionSnow,
	"Mist":         ConditionMist,
	"Smoke":        ConditionSmoke,
	"Haze":         ConditionHaze,
	"Dust":         ConditionDust,
	"Fog":          ConditionFog,
	"Sand":         ConditionSand,
	"Ash":          ConditionAsh,
	"Squall":       ConditionSquall,
	"Tornado":      ConditionTornado,
	"Clear":        ConditionClear,
	"Clouds":       ConditionClouds,
}

// ParseCondition maps a weather[].main value onto the fixed enumeration.
func ParseCondition(s string) Condition {
	if c, ok := knownConditions[s]; ok {
		return c
	}
	return ConditionUnknown
}

// AbsoluteZeroC is 0 K expressed in degrees Celsius.
const AbsoluteZeroC = -273.15

// KelvinToCelsius converts a provider temperature to Celsius.
func KelvinToCelsius(k float64) float64 {
	return k + AbsoluteZeroC
}

const iconURLFormat = "https://openweathermap.org/img/wn/%s@4x.png"

// IconURL returns the large icon asset for an OpenWeather icon identifier.
func IconURL(icon string) string {
	if icon == "" {
		return ""
	}
	return fmt.Sprintf(iconURLFormat, icon)
}

// Code is the "cod" field. The provider sends it as a number on success
// and as a string on errors.
type Code string

func (c *Code) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = Code(n.String())
	return nil
}

// Int returns the numeric value of the code, or 0 when it is not a number.
func (c Code) Int() int {
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return 0
	}
	return n
}

type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type Clouds struct {
	All int `json:"all"`
}

// Main holds the thermodynamic readings. Temperatures are Kelvin.
type Main struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  float64 `json:"pressure"`
	Humidity  float64 `json:"humidity"`
	SeaLevel  float64 `json:"sea_level"`
	GrndLevel float64 `json:"grnd_level"`
}

type Sys struct {
	Type    int    `json:"type"`
	ID      int64  `json:"id"`
	Country string `json:"country"`
	Sunrise int64  `json:"sunrise"`
	Sunset  int64  `json:"sunset"`
}

// Conditions is one weather[] entry.
type Conditions struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Wind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
	Gust  float64 `json:"gust"`
}

// WeatherRecord is the decoded snapshot of one current-weather query.
// Records are only built by decoding a successful response and are treated
// as read-only afterwards, including the Weather slice.
type WeatherRecord struct {
	Base       string       `json:"base"`
	Clouds     Clouds       `json:"clouds"`
	Cod        Code         `json:"cod"`
	Coord      Coord        `json:"coord"`
	Dt         int64        `json:"dt"`
	ID         int64        `json:"id"`
	Main       Main         `json:"main"`
	Name       string       `json:"name"`
	Sys        Sys          `json:"sys"`
	Timezone   int          `json:"timezone"` // offset from UTC in seconds
	Visibility int          `json:"visibility"`
	Weather    []Conditions `json:"weather"`
	Wind       Wind         `json:"wind"`
}

// PrimaryCondition returns the condition of the first weather[] entry.
func (r WeatherRecord) PrimaryCondition() Condition {
	if len(r.Weather) == 0 {
		return ConditionUnknown
	}
	return ParseCondition(r.Weather[0].Main)
}

// Icon returns the icon identifier of the first weather[] entry.
func (r WeatherRecord) Icon() string {
	if len(r.Weather) == 0 {
		return ""
	}
	return r.Weather[0].Icon
}

// ObservedAt returns dt as a UTC time.
func (r WeatherRecord) ObservedAt() time.Time {
	return time.Unix(r.Dt, 0).UTC()
}

// LocalTime returns dt shifted into the location's own timezone.
func (r WeatherRecord) LocalTime() time.Time {
	loc := time.FixedZone(r.Sys.Country, r.Timezone)
	return time.Unix(r.Dt, 0).In(loc)
}
