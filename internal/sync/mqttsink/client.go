// internal/sync/mqttsink/client.go
package mqttsink

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	syncengine "github.com/tamzrod/sensor-relay/internal/sync"
)

// MQTT sink with upsert-by-retained-publish: a retained message
// replaces the previous one for its topic, so publishing the same key
// twice leaves exactly one logical entry.
type Client struct {
	raw    mqtt.Client
	prefix string
}

type Config struct {
	BrokerURL string
	ClientID  string
	Prefix    string // topic prefix ahead of the record key
}

func New(cfg Config) (*Client, error) {
	if cfg.BrokerURL == "" {
		return nil, errors.New("mqttsink: broker url required")
	}

	o := mqtt.NewClientOptions()
	o.AddBroker(cfg.BrokerURL)
	o.SetClientID(cfg.ClientID)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(2 * time.Second)

	c := mqtt.NewClient(o)
	token := c.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, token.Error()
	}

	return &Client{raw: c, prefix: cfg.Prefix}, nil
}

func (c *Client) Upsert(key string, fields map[string]interface{}) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("mqttsink: marshal: %w", err)
	}

	topic := key
	if c.prefix != "" {
		topic = c.prefix + "/" + key
	}

	// A timed-out or failed publish is never definitive: the broker may
	// hold the retained message already, and replaying the same topic
	// just replaces it.
	token := c.raw.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return &syncengine.RemoteError{
			Definitive: false,
			Err:        fmt.Errorf("mqttsink: publish %s: timeout", topic),
		}
	}
	if err := token.Error(); err != nil {
		return &syncengine.RemoteError{
			Definitive: false,
			Err:        fmt.Errorf("mqttsink: publish %s: %w", topic, err),
		}
	}
	return nil
}

func (c *Client) Connected() bool {
	return c.raw.IsConnectionOpen()
}

func (c *Client) Close() {
	c.raw.Disconnect(250)
}
