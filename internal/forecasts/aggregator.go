// Package forecasts turns raw 3-hourly forecast samples into the daily and
// hourly views shown to the user.
package forecasts

import (
	"time"

	"skysense/internal/types"
)

// Default caps on the aggregated views.
const (
	DefaultMaxDays  = 7
	DefaultMaxHours = 24
)

// Representative-sample window, in local hours (inclusive).
const (
	middayStartHour = 11
	middayEndHour   = 13
)

// Result bundles both views of one forecast.
type Result struct {
	Daily  []types.ForecastDay
	Hourly []types.ForecastHour
}

// Aggregator buckets forecast samples. It is stateless apart from its caps and
// safe for concurrent use.
type Aggregator struct {
	maxDays  int
	maxHours int
}

// NewAggregator returns an Aggregator emitting at most maxDays days and
// maxHours hourly entries. Non-positive values select the defaults.
func NewAggregator(maxDays, maxHours int) *Aggregator {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	if maxHours <= 0 {
		maxHours = DefaultMaxHours
	}
	return &Aggregator{maxDays: maxDays, maxHours: maxHours}
}

// Aggregate computes both views. A nil loc means UTC.
func (a *Aggregator) Aggregate(samples []types.ForecastSample, loc *time.Location) Result {
	return Result{
		Daily:  a.Daily(samples, loc),
		Hourly: a.Hourly(samples),
	}
}

type bucket struct {
	year    int
	yearDay int
	samples []types.ForecastSample
}

// Daily groups samples by calendar date in loc. Days are emitted in order of
// first appearance and never re-sorted. Min and max span every sample of the
// day while the condition and precipitation come from the representative
// sample: the first one between 11:00 and 13:59 local time, else the middle
// sample of the bucket. The two may therefore disagree.
func (a *Aggregator) Daily(samples []types.ForecastSample, loc *time.Location) []types.ForecastDay {
	if len(samples) == 0 {
		return []types.ForecastDay{}
	}
	if loc == nil {
		loc = time.UTC
	}

	var buckets []*bucket
	index := make(map[[2]int]*bucket)
	for _, s := range samples {
		t := time.Unix(s.Timestamp, 0).In(loc)
		k := [2]int{t.Year(), t.YearDay()}
		b, ok := index[k]
		if !ok {
			b = &bucket{year: k[0], yearDay: k[1]}
			index[k] = b
			buckets = append(buckets, b)
		}
		b.samples = append(b.samples, s)
	}

	if len(buckets) > a.maxDays {
		buckets = buckets[:a.maxDays]
	}

	days := make([]types.ForecastDay, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, summarize(b.samples, loc))
	}
	return days
}

func summarize(samples []types.ForecastSample, loc *time.Location) types.ForecastDay {
	minC, maxC := samples[0].TemperatureC, samples[0].TemperatureC
	for _, s := range samples[1:] {
		if s.TemperatureC < minC {
			minC = s.TemperatureC
		}
		if s.TemperatureC > maxC {
			maxC = s.TemperatureC
		}
	}

	rep := representative(samples, loc)
	return types.ForecastDay{
		Timestamp:  rep.Timestamp,
		MinC:       minC,
		MaxC:       maxC,
		Condition:  rep.Condition,
		PrecipProb: precip(rep.PrecipProb),
	}
}

func representative(samples []types.ForecastSample, loc *time.Location) types.ForecastSample {
	for _, s := range samples {
		h := time.Unix(s.Timestamp, 0).In(loc).Hour()
		if h >= middayStartHour && h <= middayEndHour {
			return s
		}
	}
	return samples[len(samples)/2]
}

func precip(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Hourly returns the first samples, up to the hourly cap, in input order.
func (a *Aggregator) Hourly(samples []types.ForecastSample) []types.ForecastHour {
	n := min(len(samples), a.maxHours)
	hours := make([]types.ForecastHour, 0, n)
	for _, s := range samples[:n] {
		hours = append(hours, types.ForecastHour{
			Timestamp:    s.Timestamp,
			TemperatureC: s.TemperatureC,
			Condition:    s.Condition,
			PrecipProb:   precip(s.PrecipProb),
			Humidity:     s.Humidity,
			PressureHPa:  s.PressureHPa,
			WindSpeedKmh: s.WindSpeedKmh,
			FeelsLikeC:   s.FeelsLikeC,
		})
	}
	return hours
}
