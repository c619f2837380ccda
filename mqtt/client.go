// Package mqtt is a thin wrapper around the paho client: topic scoping,
// JSON payloads, and a retained availability topic driven by a last will.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	availabilityTopic = "bridge/state"
	payloadOnline     = "online"
	payloadOffline    = "offline"

	disconnectQuiesceMs = 250
)

type Client struct {
	topicRoot string
	opts      *paho.ClientOptions
	client    paho.Client
	log       zerolog.Logger
}

// NewClient prepares a client for the given broker. The availability topic
// under topicRoot is retained and flips to offline via the last will if the
// bridge dies uncleanly.
func NewClient(brokerURL, clientID, topicRoot string, log zerolog.Logger) *Client {
	opts := paho.NewClientOptions().AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetBinaryWill(topicRoot+"/"+availabilityTopic, []byte(payloadOffline), 0, true)

	return &Client{
		topicRoot: topicRoot,
		opts:      opts,
		log:       log.With().Str("component", "mqtt").Logger(),
	}
}

// Connect dials the broker and marks the bridge online.
func (c *Client) Connect() error {
	c.client = paho.NewClient(c.opts)
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect error: %w", err)
	}
	return c.SetAvailability(true)
}

// Disconnect marks the bridge offline and closes the connection.
func (c *Client) Disconnect() {
	if c.client == nil {
		return
	}
	if err := c.SetAvailability(false); err != nil {
		c.log.Warn().Err(err).Msg("could not publish offline state")
	}
	c.client.Disconnect(disconnectQuiesceMs)
}

// SetAvailability publishes the retained online/offline marker.
func (c *Client) SetAvailability(online bool) error {
	state := payloadOffline
	if online {
		state = payloadOnline
	}
	return c.publish(availabilityTopic, []byte(state), true)
}

// Publish JSON-encodes payload and publishes it under the topic root.
func (c *Client) Publish(topic string, payload any, retained bool) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("unable to encode payload for %s: %w", topic, err)
	}
	return c.publish(topic, encoded, retained)
}

func (c *Client) publish(topic string, payload []byte, retained bool) error {
	if c.client == nil {
		return fmt.Errorf("client not connected")
	}
	if len(topic) == 0 || topic[0] == '/' {
		return fmt.Errorf("expected relative non-empty topic, got %q", topic)
	}

	scoped := c.topicRoot + "/" + topic

	token := c.client.Publish(scoped, 0, retained, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Error().Err(err).Str("topic", scoped).Msg("publish failed")
		}
	}()
	return nil
}
