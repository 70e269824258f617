package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	clientName     = "settlement-engine"
	reconnectWait  = 2 * time.Second
	maxReconnects  = 10
	maxDeliveries  = 3
	ackWaitTimeout = 30 * time.Second
	streamMaxAge   = 24 * time.Hour
	streamMaxMsgs  = 1000000
)

// NATSClient wraps a NATS connection with JetStream for durable event delivery
type NATSClient struct {
	servers string

	mu            sync.RWMutex
	nc            *nats.Conn
	js            nats.JetStreamContext
	subscriptions map[string]*nats.Subscription
}

// NewNATSClient creates a new NATS client
func NewNATSClient(servers string) *NATSClient {
	return &NATSClient{
		servers:       servers,
		subscriptions: make(map[string]*nats.Subscription),
	}
}

// Connect establishes a connection to the NATS server with JetStream
func (c *NATSClient) Connect(ctx context.Context) error {
	nc, err := nats.Connect(c.servers,
		nats.Name(clientName),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
				return
			}
			log.Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			log.WithFields(log.Fields{
				"subject": sub.Subject,
				"error":   err,
			}).Error("NATS async error")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c.mu.Lock()
	c.nc = nc
	c.js = js
	c.mu.Unlock()

	log.WithField("servers", c.servers).Info("Connected to NATS with JetStream")
	return nil
}

// consumerNameFor derives a durable consumer name from a subject. Durable
// names survive restarts so redelivery resumes where the consumer left off.
func consumerNameFor(subject string) string {
	name := strings.NewReplacer(".", "_", "*", "wildcard").Replace(subject)
	return fmt.Sprintf("%s-%s", clientName, name)
}

// Subscribe registers a handler for messages on the subject using a durable
// JetStream consumer with explicit acknowledgment. A handler error NAKs the
// message for redelivery, up to the delivery cap.
func (c *NATSClient) Subscribe(subject string, handler func([]byte) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.js == nil {
		return fmt.Errorf("not connected to NATS JetStream")
	}

	sub, err := c.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			log.WithFields(log.Fields{
				"subject": subject,
				"error":   err,
			}).Error("Failed to process message")

			if nakErr := msg.Nak(); nakErr != nil {
				log.WithError(nakErr).Error("Failed to NAK message")
			}
			return
		}

		if ackErr := msg.Ack(); ackErr != nil {
			log.WithError(ackErr).Error("Failed to ACK message")
		}
	},
		nats.Durable(consumerNameFor(subject)),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(maxDeliveries),
		nats.AckWait(ackWaitTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	c.subscriptions[subject] = sub
	log.WithField("subject", subject).Info("Subscribed to NATS subject")
	return nil
}

// Publish publishes a message to the subject through JetStream
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	c.mu.RLock()
	js := c.js
	c.mu.RUnlock()

	if js == nil {
		return fmt.Errorf("not connected to NATS JetStream")
	}

	if _, err := js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"subject": subject,
		"size":    len(data),
	}).Debug("Published message to NATS")
	return nil
}

// IsConnected returns true if the client is connected to NATS
func (c *NATSClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nc != nil && c.nc.IsConnected()
}

// ensureStream creates the JetStream stream when it does not exist yet
func (c *NATSClient) ensureStream(streamName string, subjects []string, description string) error {
	c.mu.RLock()
	js := c.js
	c.mu.RUnlock()

	if js == nil {
		return fmt.Errorf("not connected to NATS JetStream")
	}

	if _, err := js.StreamInfo(streamName); err == nil {
		log.WithField("stream", streamName).Info("JetStream stream already exists")
		return nil
	}

	_, err := js.AddStream(&nats.StreamConfig{
		Name:        streamName,
		Subjects:    subjects,
		Retention:   nats.LimitsPolicy,
		MaxAge:      streamMaxAge,
		MaxMsgs:     streamMaxMsgs,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	log.WithFields(log.Fields{
		"stream":   streamName,
		"subjects": subjects,
	}).Info("Created JetStream stream")
	return nil
}

// Close drains subscriptions and shuts down the connection
func (c *NATSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			log.WithFields(log.Fields{
				"subject": subject,
				"error":   err,
			}).Error("Failed to unsubscribe")
		}
	}
	c.subscriptions = make(map[string]*nats.Subscription)

	if c.nc != nil {
		c.nc.Close()
		log.Info("NATS connection closed")
	}

	return nil
}
