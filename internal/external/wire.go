package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"skysense/internal/types"
)

// Envelope is the wrapper the weather backend puts around every payload.
type Envelope[T any] struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      *T     `json:"data"`
	Timestamp string `json:"timestamp"`
}

// ConditionPayload is one entry of the backend "weather" array.
type ConditionPayload struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// MainPayload carries the thermodynamic readings of a record.
type MainPayload struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	Humidity  *float64 `json:"humidity"`
	Pressure  *float64 `json:"pressure"`
	TempMin   *float64 `json:"temp_min"`
	TempMax   *float64 `json:"temp_max"`
}

// WindPayload is the backend wind block. Speed is km/h for metric requests.
type WindPayload struct {
	Speed *float64 `json:"speed"`
	Deg   *float64 `json:"deg"`
}

type CoordPayload struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type SysPayload struct {
	Country string `json:"country"`
}

// CurrentPayload is the data of a current-conditions response.
type CurrentPayload struct {
	Name       string             `json:"name"`
	Dt         int64              `json:"dt"`
	Main       *MainPayload       `json:"main"`
	Weather    []ConditionPayload `json:"weather"`
	Wind       *WindPayload       `json:"wind"`
	Coord      *CoordPayload      `json:"coord"`
	Visibility *float64           `json:"visibility"`
	Sys        *SysPayload        `json:"sys"`
	UVI        *float64           `json:"uvi"`
}

// ForecastItemPayload is one 3-hourly forecast record.
type ForecastItemPayload struct {
	Dt      int64              `json:"dt"`
	Main    *MainPayload       `json:"main"`
	Weather []ConditionPayload `json:"weather"`
	Wind    *WindPayload       `json:"wind"`
	Pop     *float64           `json:"pop"`
}

type ForecastCityPayload struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

// ForecastPayload is the data of a forecast response.
type ForecastPayload struct {
	List []ForecastItemPayload `json:"list"`
	City ForecastCityPayload   `json:"city"`
}

// AlertPayload is one backend alert.
type AlertPayload struct {
	ID        string    `json:"id"`
	City      string    `json:"city"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"createdAt"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
}

// Forecast is a normalized forecast response: the reported location and the
// raw samples that feed aggregation.
type Forecast struct {
	City    string                 `json:"city"`
	Country string                 `json:"country"`
	Samples []types.ForecastSample `json:"samples"`
}

func malformed(format string, args ...any) *types.AppError {
	return types.NewAppError(types.ErrCodeUpstreamMalformedResponse, fmt.Sprintf(format, args...), nil)
}

// unwrapEnvelope decodes an envelope and returns its data verbatim. A body
// that is not JSON, reports success=false, or carries null data is malformed.
func unwrapEnvelope(body []byte) (json.RawMessage, error) {
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamMalformedResponse,
			"weather service returned invalid JSON", err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "weather service reported failure"
		}
		return nil, malformed("%s", msg)
	}
	if env.Data == nil || bytes.Equal(bytes.TrimSpace(*env.Data), []byte("null")) {
		return nil, malformed("weather service returned no data")
	}
	return *env.Data, nil
}

func decodePayload[T any](data []byte) (*T, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamMalformedResponse,
			"weather service returned an unexpected payload", err)
	}
	return &payload, nil
}

func conditionFrom(weather []ConditionPayload) types.Condition {
	if len(weather) == 0 {
		return types.Condition{}
	}
	w := weather[0]
	return types.Condition{Code: w.Icon, Label: w.Main, Description: w.Description}
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// CurrentConditionsFrom normalizes a current-conditions payload. The
// temperature is required; other missing readings take neutral defaults and
// visibility defaults to 10 km. The name is kept as sent, possibly empty.
func CurrentConditionsFrom(p *CurrentPayload) (*types.CurrentConditions, error) {
	if p == nil || p.Main == nil || p.Main.Temp == nil {
		return nil, malformed("current conditions missing temperature")
	}

	temp := *p.Main.Temp
	cc := &types.CurrentConditions{
		Name:         p.Name,
		ObservedAt:   p.Dt,
		TemperatureC: temp,
		FeelsLikeC:   valueOr(p.Main.FeelsLike, temp),
		Humidity:     int(math.Round(valueOr(p.Main.Humidity, 0))),
		Condition:    conditionFrom(p.Weather),
		TempMaxC:     valueOr(p.Main.TempMax, temp),
		TempMinC:     valueOr(p.Main.TempMin, temp),
		PressureHPa:  valueOr(p.Main.Pressure, 0),
		VisibilityM:  valueOr(p.Visibility, types.DefaultVisibilityMeters),
		UVIndex:      p.UVI,
	}
	if p.Wind != nil {
		cc.WindSpeedKmh = valueOr(p.Wind.Speed, 0)
	}
	if p.Sys != nil {
		cc.Country = p.Sys.Country
	}
	if p.Coord != nil {
		cc.Coordinates = &types.Coordinates{Lat: p.Coord.Lat, Lon: p.Coord.Lon}
	}
	return cc, nil
}

// SamplesFrom normalizes a forecast payload into samples, preserving order.
func SamplesFrom(p *ForecastPayload) (*Forecast, error) {
	if p == nil {
		return nil, malformed("forecast missing data")
	}
	out := &Forecast{
		City:    p.City.Name,
		Country: p.City.Country,
		Samples: make([]types.ForecastSample, 0, len(p.List)),
	}
	for i, item := range p.List {
		if item.Main == nil || item.Main.Temp == nil {
			return nil, malformed("forecast item %d missing temperature", i)
		}
		s := types.ForecastSample{
			Timestamp:    item.Dt,
			TemperatureC: *item.Main.Temp,
			FeelsLikeC:   item.Main.FeelsLike,
			PressureHPa:  item.Main.Pressure,
			Condition:    conditionFrom(item.Weather),
			PrecipProb:   item.Pop,
		}
		if item.Main.Humidity != nil {
			h := int(math.Round(*item.Main.Humidity))
			s.Humidity = &h
		}
		if item.Wind != nil {
			s.WindSpeedKmh = item.Wind.Speed
		}
		out.Samples = append(out.Samples, s)
	}
	return out, nil
}

// AlertsFrom normalizes an alerts payload.
func AlertsFrom(p *[]AlertPayload) ([]types.Alert, error) {
	if p == nil {
		return nil, malformed("alerts missing data")
	}
	alerts := make([]types.Alert, 0, len(*p))
	for _, a := range *p {
		alerts = append(alerts, types.Alert{
			ID:        a.ID,
			City:      a.City,
			Type:      a.Type,
			Message:   a.Message,
			Severity:  a.Severity,
			CreatedAt: a.CreatedAt,
			Value:     a.Value,
			Threshold: a.Threshold,
		})
	}
	return alerts, nil
}
