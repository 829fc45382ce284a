package clients

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mixpool-backend/internal/config"
	"mixpool-backend/internal/metrics"

	"github.com/nats-io/nats.go"
)

// NATSClient NATS client
type NATSClient struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	streamName string
	useJS      bool
}

// NewNATSClient creates a NATS client and makes sure the pool's stream
// exists
func NewNATSClient(url, streamName string) (*NATSClient, error) {
	connectTimeout := 10 * time.Second
	reconnectWait := 5 * time.Second
	maxReconnects := -1
	useJS := true
	if config.AppConfig != nil {
		if config.AppConfig.NATS.Timeout > 0 {
			connectTimeout = time.Duration(config.AppConfig.NATS.Timeout) * time.Second
			log.Printf("🔌 Using configured NATS timeout: %v", connectTimeout)
		}
		if config.AppConfig.NATS.ReconnectWait > 0 {
			reconnectWait = time.Duration(config.AppConfig.NATS.ReconnectWait) * time.Second
		}
		if config.AppConfig.NATS.MaxReconnects != 0 {
			maxReconnects = config.AppConfig.NATS.MaxReconnects
		}
		useJS = config.AppConfig.NATS.EnableJetStream
	}

	// connect to NATS server
	conn, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️ NATS disconnected: %v", err)
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("✅ NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	client := &NATSClient{
		conn:       conn,
		streamName: streamName,
		useJS:      useJS,
	}

	if useJS {
		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		client.js = js

		if err := client.ensureStream(); err != nil {
			conn.Close()
			return nil, err
		}
	} else {
		log.Printf("✅ Using plain NATS publishing, JetStream disabled")
	}

	metrics.NATSConnectionStatus.Set(1)
	return client, nil
}

// ensureStream creates the pool's JetStream stream if missing
func (c *NATSClient) ensureStream() error {
	_, err := c.js.StreamInfo(c.streamName)
	if err == nil {
		log.Printf("✅ Stream %s already exists", c.streamName)
		return nil
	}

	streamConfig := &nats.StreamConfig{
		Name: c.streamName,
		Subjects: []string{
			"mixer.>",
		},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}

	_, err = c.js.AddStream(streamConfig)
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	log.Printf("✅ Stream %s created", c.streamName)
	return nil
}

// Publish marshals payload and publishes it on subject
func (c *NATSClient) Publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.NATSPublishFailures.WithLabelValues(subject).Inc()
		return fmt.Errorf("failed to marshal payload for %s: %w", subject, err)
	}

	if c.useJS {
		_, err = c.js.Publish(subject, data)
	} else {
		err = c.conn.Publish(subject, data)
	}
	if err != nil {
		metrics.NATSPublishFailures.WithLabelValues(subject).Inc()
		return fmt.Errorf("failed to publish on %s: %w", subject, err)
	}

	metrics.NATSMessagesPublished.WithLabelValues(subject).Inc()
	return nil
}

// Subscribe attaches handler to subject, preferring a plain NATS
// subscription and falling back to JetStream
func (c *NATSClient) Subscribe(subject string, handler nats.MsgHandler) error {
	log.Printf("🔍 Subscribing to subject: %s", subject)
	_, err := c.conn.Subscribe(subject, handler)
	if err == nil {
		log.Printf("✅ NATS subscription active: %s", subject)
		return nil
	}

	if !c.useJS {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	log.Printf("⚠️ Plain subscription failed, trying JetStream: %v", err)

	_, err = c.js.Subscribe(subject, handler)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	log.Printf("✅ JetStream subscription active: %s", subject)
	return nil
}

// Close connection
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
		metrics.NATSConnectionStatus.Set(0)
	}
}

// GetConnection returns the NATS connection
func (c *NATSClient) GetConnection() *nats.Conn {
	return c.conn
}

// GetJetStream returns the JetStream context
func (c *NATSClient) GetJetStream() nats.JetStreamContext {
	return c.js
}
