package telemetry

import (
	"expvar"
	"log"
	"net/http"

	"linebot/follower"
)

// ExpvarConfig controls the optional /debug/vars endpoint used for live plots.
type ExpvarConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// Expvar publishes the latest follower sample through expvar.
type Expvar struct {
	sample *expvar.Map
	flat   map[string]*expvar.Float
	ticks  *expvar.Int
}

var sampleKeys = []string{"reflected", "error", "accumulated", "direction", "speed"}

// NewExpvar registers the variables under prefix. expvar names are global, so
// each prefix may only be used once per process.
func NewExpvar(prefix string) *Expvar {
	v := &Expvar{
		sample: expvar.NewMap(prefix + "sample"),
		flat:   map[string]*expvar.Float{},
		ticks:  expvar.NewInt(prefix + "ticks"),
	}
	for _, k := range sampleKeys {
		v.sample.Set(k, new(expvar.Float))
		v.flat[k] = expvar.NewFloat(prefix + "sample_" + k)
	}
	return v
}

// StartExpvar registers the variables and serves /debug/vars on cfg.Addr.
func StartExpvar(cfg ExpvarConfig, logger *log.Logger) *Expvar {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:7070"
	}
	v := NewExpvar("")

	server := &http.Server{Addr: cfg.Addr, Handler: http.DefaultServeMux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("expvar server error: %v", err)
		}
	}()
	return v
}

// Observe implements follower.Observer.
func (v *Expvar) Observe(s follower.Sample) {
	if v == nil {
		return
	}
	values := map[string]float64{
		"reflected":   s.Reflected,
		"error":       s.Error,
		"accumulated": s.Accumulated,
		"direction":   s.Direction,
		"speed":       s.Speed,
	}
	for k, value := range values {
		setFloat(v.sample, k, value)
		if f, ok := v.flat[k]; ok {
			f.Set(value)
		}
	}
	v.ticks.Set(int64(s.Tick))
}

// setFloat updates an expvar.Float stored inside a map.
func setFloat(m *expvar.Map, key string, value float64) {
	if v := m.Get(key); v != nil {
		if f, ok := v.(*expvar.Float); ok {
			f.Set(value)
			return
		}
	}
	f := new(expvar.Float)
	f.Set(value)
	m.Set(key, f)
}
