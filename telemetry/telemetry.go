// Package telemetry fans follower samples out to expvar, websocket clients and
// an MQTT broker.
package telemetry

import (
	"log"

	"linebot/follower"
)

// Config aggregates the telemetry sinks.
type Config struct {
	Expvar    ExpvarConfig    `json:"expvar"`
	Websocket WebsocketConfig `json:"websocket"`
	MQTT      MQTTConfig      `json:"mqtt"`
}

// Multi forwards every sample to each observer in order.
type Multi []follower.Observer

// Observe implements follower.Observer.
func (m Multi) Observe(s follower.Sample) {
	for _, o := range m {
		o.Observe(s)
	}
}

// Sinks holds the sinks started from a Config.
type Sinks struct {
	Expvar *Expvar
	Hub    *Hub
	MQTT   *MQTTPublisher

	disconnect func()
}

// Start brings up every enabled sink. A broker that cannot be reached is logged
// and skipped.
func Start(cfg Config, logger *log.Logger) *Sinks {
	if logger == nil {
		logger = log.Default()
	}
	s := &Sinks{
		Expvar: StartExpvar(cfg.Expvar, logger),
		Hub:    StartHub(cfg.Websocket, logger),
	}
	if cfg.MQTT.Enabled {
		pub, client, err := ConnectMQTT(cfg.MQTT, logger)
		if err != nil {
			logger.Printf("telemetry: %v", err)
		} else {
			s.MQTT = pub
			s.disconnect = func() { client.Disconnect(250) }
		}
	}
	return s
}

// Observer returns the enabled sinks as one observer, or nil when none is.
func (s *Sinks) Observer() follower.Observer {
	var m Multi
	if s.Expvar != nil {
		m = append(m, s.Expvar)
	}
	if s.Hub != nil {
		m = append(m, s.Hub)
	}
	if s.MQTT != nil {
		m = append(m, s.MQTT)
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Close shuts the sinks down.
func (s *Sinks) Close() {
	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.disconnect != nil {
		s.disconnect()
	}
}
