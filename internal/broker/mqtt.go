// Package broker is the MQTT transport shared by the publisher and the
// subscriber.
package broker

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"smartdate/internal/config"
	"smartdate/internal/logger"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 2 * time.Second
	// disconnectQuiesce is the grace period, in milliseconds, for in-flight work.
	disconnectQuiesce = 250
)

// MessageHandler receives the raw payload of every message on the topic.
type MessageHandler func(payload []byte)

// Client wraps a paho client bound to a single topic.
type Client struct {
	cfg    config.BrokerConfig
	logger *logger.Logger
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
	handler   MessageHandler
}

// NewClient prepares a client; role ("pub" or "sub") is used in the
// generated client ID when none is configured.
func NewClient(cfg config.BrokerConfig, role string, logger *logger.Logger) *Client {
	c := &Client{cfg: cfg, logger: logger}
	c.client = mqtt.NewClient(c.options(role))
	return c
}

// ClientID returns the configured ID, or a unique one for role.
func ClientID(cfg config.BrokerConfig, role string) string {
	if cfg.ClientID != "" {
		return cfg.ClientID
	}
	return fmt.Sprintf("smartdate_%s_%s", role, uuid.NewString()[:8])
}

func (c *Client) options(role string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.cfg.BrokerURL())
	opts.SetClientID(ClientID(c.cfg, role))
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetConnectTimeout(connectTimeout)

	if c.cfg.User != "" {
		opts.SetUsername(c.cfg.User)
		opts.SetPassword(c.cfg.Password)
	}
	if c.cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.OnConnect = func(cl mqtt.Client) {
		c.mu.Lock()
		c.connected = true
		handler := c.handler
		c.mu.Unlock()

		c.logger.Info("✅ Connected to broker %s", c.cfg.BrokerURL())
		if handler != nil {
			if err := c.subscribe(handler); err != nil {
				c.logger.Error("Failed to resubscribe to %s: %v", c.cfg.Topic, err)
			}
		}
	}

	opts.OnConnectionLost = func(cl mqtt.Client, err error) {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		c.logger.Warning("Connection to broker lost, reconnecting: %v", err)
	}

	return opts
}

// Connect dials the broker and waits for the CONNACK.
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to broker %s", c.cfg.BrokerURL())

	token := c.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("failed to connect to broker: %w", ctx.Err())
	case <-time.After(connectTimeout):
		return fmt.Errorf("failed to connect to broker: timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	return nil
}

// Publish sends payload on the configured topic.
func (c *Client) Publish(payload []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("failed to publish: not connected")
	}

	token := c.client.Publish(c.cfg.Topic, c.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("failed to publish: timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

// Subscribe registers handler for the topic. The subscription is renewed
// after every reconnect.
func (c *Client) Subscribe(handler MessageHandler) error {
	c.mu.Lock()
	c.handler = handler
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return nil
	}
	return c.subscribe(handler)
}

func (c *Client) subscribe(handler MessageHandler) error {
	token := c.client.Subscribe(c.cfg.Topic, c.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("failed to subscribe: timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	c.logger.Info("📡 Subscribed to %s", c.cfg.Topic)
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Disconnect unsubscribes if needed and closes the connection.
func (c *Client) Disconnect() {
	c.mu.Lock()
	subscribed := c.handler != nil
	c.handler = nil
	c.connected = false
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return
	}
	if subscribed {
		c.client.Unsubscribe(c.cfg.Topic).WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(disconnectQuiesce)
	c.logger.Info("🛑 Disconnected from broker")
}
