package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"linebot/follower"
)

// MQTTConfig controls sample publishing to a broker.
type MQTTConfig struct {
	Enabled  bool   `json:"enabled"`
	Broker   string `json:"broker"` // tcp://host:port
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
	QoS      byte   `json:"qos"`
	Every    int    `json:"every"` // publish every Nth tick
}

// Publisher is the part of mqtt.Client the publisher uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes samples as JSON. Publish tokens are not waited on so
// the control loop never blocks on the broker.
type MQTTPublisher struct {
	client Publisher
	topic  string
	qos    byte
	every  int
	logger *log.Logger
}

// NewMQTTPublisher publishes to topic through client.
func NewMQTTPublisher(client Publisher, cfg MQTTConfig, logger *log.Logger) *MQTTPublisher {
	if logger == nil {
		logger = log.Default()
	}
	topic := cfg.Topic
	if topic == "" {
		topic = "linebot/follower/samples"
	}
	every := cfg.Every
	if every < 1 {
		every = 1
	}
	return &MQTTPublisher{client: client, topic: topic, qos: cfg.QoS, every: every, logger: logger}
}

// ConnectMQTT connects to the broker and returns a publisher.
func ConnectMQTT(cfg MQTTConfig, logger *log.Logger) (*MQTTPublisher, mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, nil, fmt.Errorf("telemetry.mqtt.broker must be set")
	}
	if logger == nil {
		logger = log.Default()
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "linebot"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	opts.OnConnect = func(mqtt.Client) {
		logger.Println("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Printf("MQTT connection lost: %v", err)
	}
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, nil, fmt.Errorf("mqtt connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return NewMQTTPublisher(client, cfg, logger), client, nil
}

// Observe implements follower.Observer.
func (p *MQTTPublisher) Observe(s follower.Sample) {
	if p == nil || s.Tick%p.every != 0 {
		return
	}
	payload, err := json.Marshal(s)
	if err != nil {
		p.logger.Printf("mqtt marshal: %v", err)
		return
	}
	p.client.Publish(p.topic, p.qos, false, payload)
}
