// Package broker is a thin MQTT client wrapper shared by the bridge and
// the sensor source.
package broker

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Config holds broker connection settings.
type Config struct {
	Broker   string
	Port     int
	Username string
	Password string
	ClientID string
}

// Client wraps a connected paho MQTT client.
type Client struct {
	client mqtt.Client
}

// Connect dials the broker. Reconnects are handled by paho; subscriptions
// registered through Subscribe are re-established on reconnect.
func Connect(cfg Config) (*Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetResumeSubs(true)
	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Client{client: client}, nil
}

// Publish sends a payload to a topic.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if token := c.client.Publish(topic, 0, retained, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Subscribe registers a callback for a topic (wildcards allowed).
func (c *Client) Subscribe(topic string, cb func(topic string, payload []byte)) error {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		cb(msg.Topic(), msg.Payload())
	}
	if token := c.client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
}
