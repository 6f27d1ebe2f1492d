// Package mqttpub publishes channel lifecycle events to an MQTT broker
// (SPEC_FULL supplemented feature 5), gated by [global] mqtt-broker,
// grounded directly on the teacher's mqtt_publisher.go: the same
// paho.mqtt.golang client options (auto-reconnect, retrying connect,
// keepalive) and client-ID generation scheme.
package mqttpub

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Event is one channel lifecycle notification.
type Event struct {
	Name      string  `json:"event"` // "created", "retuned", "destroyed"
	SSRC      uint32  `json:"ssrc"`
	Section   string  `json:"section"`
	FreqHz    float64 `json:"freq_hz,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// Publisher wraps a single paho client used to publish channel events
// under "radiod/<name>/channel/<ssrc>".
type Publisher struct {
	client     mqtt.Client
	instance   string
	publishQoS byte
}

// New connects to broker and returns a ready Publisher. instance names
// this daemon instance in the topic tree (radiod/<instance>/channel/*).
func New(broker, username, password, instance string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(generateClientID())
	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Printf("[mqtt] connected to %s", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("[mqtt] connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttpub: connecting to %s: %w", broker, token.Error())
	}
	return &Publisher{client: client, instance: instance, publishQoS: 0}, nil
}

// generateClientID matches the teacher's ubersdr_<hex> scheme, renamed
// to this daemon's own prefix.
func generateClientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "radiod_" + hex.EncodeToString(b)
}

// Publish sends ev as JSON to radiod/<instance>/channel/<ssrc>.
func (p *Publisher) Publish(ev Event) {
	ev.Timestamp = time.Now().Unix()
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[mqtt] marshal event: %v", err)
		return
	}
	topic := fmt.Sprintf("radiod/%s/channel/%d", p.instance, ev.SSRC)
	token := p.client.Publish(topic, p.publishQoS, false, data)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("[mqtt] publish %s: %v", topic, token.Error())
		}
	}()
}

// Close disconnects the client.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
