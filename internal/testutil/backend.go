// Package testutil provides a scripted weather backend for package tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Reply is a scripted response: status and a JSON-encodable body.
type Reply struct {
	Status int
	Body   any
	Header http.Header
}

// Handler produces a Reply for a location ("London" or "51.5,-0.12").
type Handler func(location string, r *http.Request) Reply

// Backend is an httptest server that speaks the weather backend's routes
// and envelope, and counts the requests it receives.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	calls    []string
	current  Handler
	forecast Handler
	alerts   Handler
	health   Handler
}

// NewBackend starts a backend whose default handlers answer every location
// successfully: current conditions at 15°C and a five day forecast.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		current: func(loc string, _ *http.Request) Reply {
			return Reply{Status: http.StatusOK, Body: OK(CurrentData(loc, 15, "01d"))}
		},
		forecast: func(loc string, _ *http.Request) Reply {
			start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
			return Reply{Status: http.StatusOK, Body: OK(ForecastData(loc, "GB", start, 5, 8))}
		},
		alerts: func(loc string, _ *http.Request) Reply {
			return Reply{Status: http.StatusOK, Body: OK([]any{})}
		},
		health: func(string, *http.Request) Reply {
			return Reply{Status: http.StatusOK, Body: map[string]any{
				"success": true, "message": "ok", "data": map[string]any{"status": "ok"}, "timestamp": Timestamp(),
			}}
		},
	}

	r := chi.NewRouter()
	r.Get("/health", b.serve(func() Handler { return b.health }, nil))
	for _, route := range []struct {
		name string
		h    func() Handler
	}{
		{"weather", func() Handler { return b.current }},
		{"forecast", func() Handler { return b.forecast }},
		{"alerts", func() Handler { return b.alerts }},
	} {
		r.Get("/"+route.name+"/{city}", b.serve(route.h, func(r *http.Request) string {
			return chi.URLParam(r, "city")
		}))
		r.Get("/"+route.name+"-coords", b.serve(route.h, func(r *http.Request) string {
			return r.URL.Query().Get("lat") + "," + r.URL.Query().Get("lon")
		}))
	}

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) serve(pick func() Handler, locate func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls = append(b.calls, r.URL.Path)
		h := pick()
		b.mu.Unlock()

		loc := ""
		if locate != nil {
			loc = locate(r)
		}
		reply := h(loc, r)
		for k, vs := range reply.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		if reply.Status == 0 {
			reply.Status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.Status)
		if reply.Body == nil {
			return
		}
		if raw, ok := reply.Body.(string); ok {
			_, _ = w.Write([]byte(raw))
			return
		}
		_ = json.NewEncoder(w).Encode(reply.Body)
	}
}

// OnCurrent replaces the current-conditions handler.
func (b *Backend) OnCurrent(h Handler) { b.set(&b.current, h) }

// OnForecast replaces the forecast handler.
func (b *Backend) OnForecast(h Handler) { b.set(&b.forecast, h) }

// OnAlerts replaces the alerts handler.
func (b *Backend) OnAlerts(h Handler) { b.set(&b.alerts, h) }

// OnHealth replaces the health handler.
func (b *Backend) OnHealth(h Handler) { b.set(&b.health, h) }

func (b *Backend) set(dst *Handler, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	*dst = h
}

// Calls returns the number of requests received.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

// Paths returns the request paths in arrival order.
func (b *Backend) Paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// CallsTo returns the number of requests whose path starts with prefix.
func (b *Backend) CallsTo(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, p := range b.calls {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

// Status returns a handler answering with an error status and envelope.
func Status(code int) Handler {
	return func(string, *http.Request) Reply {
		return Reply{Status: code, Body: map[string]any{
			"success": false, "message": http.StatusText(code), "data": nil, "timestamp": Timestamp(),
		}}
	}
}

// Timestamp is the fixed envelope timestamp used by fixtures.
func Timestamp() string {
	return "2026-03-01T12:00:00Z"
}

// OK wraps data in a successful envelope.
func OK(data any) map[string]any {
	return map[string]any{
		"success":   true,
		"message":   "ok",
		"data":      data,
		"timestamp": Timestamp(),
	}
}

// CurrentData builds a current-conditions payload.
func CurrentData(name string, tempC float64, icon string) map[string]any {
	return map[string]any{
		"name": name,
		"dt":   int64(1772366400),
		"main": map[string]any{
			"temp":       tempC,
			"feels_like": tempC - 1,
			"humidity":   72,
			"pressure":   1013,
			"temp_min":   tempC - 3,
			"temp_max":   tempC + 3,
		},
		"weather": []any{
			map[string]any{"main": "Clear", "description": "clear sky", "icon": icon},
		},
		"wind":  map[string]any{"speed": 12.5, "deg": 240},
		"coord": map[string]any{"lon": -0.1257, "lat": 51.5085},
		"sys":   map[string]any{"country": "GB"},
	}
}

// ForecastData builds a forecast payload with perDay evenly spaced samples
// for each of days consecutive days beginning at start.
func ForecastData(city, country string, start time.Time, days, perDay int) map[string]any {
	step := 24 * time.Hour / time.Duration(perDay)
	list := make([]any, 0, days*perDay)
	for i := 0; i < days*perDay; i++ {
		ts := start.Add(time.Duration(i) * step)
		list = append(list, map[string]any{
			"dt": ts.Unix(),
			"main": map[string]any{
				"temp":       float64(10 + i%perDay),
				"feels_like": float64(9 + i%perDay),
				"humidity":   60,
				"pressure":   1010,
			},
			"weather": []any{
				map[string]any{"main": "Clouds", "description": "scattered clouds", "icon": fmt.Sprintf("%02dd", 2+i%3)},
			},
			"wind": map[string]any{"speed": 10.0},
			"pop":  0.2,
		})
	}
	return map[string]any{
		"list": list,
		"city": map[string]any{"name": city, "country": country},
	}
}
