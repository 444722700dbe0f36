// Package events publishes order lifecycle changes for other backends to consume.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"delivery-marketplace/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// OrderStatusEvent is the payload sent whenever an order is created or changes status.
type OrderStatusEvent struct {
	OrderID      uint               `json:"order_id"`
	RestaurantID uint               `json:"restaurant_id"`
	CustomerID   uint               `json:"customer_id"`
	DriverID     *uint              `json:"driver_id,omitempty"`
	From         models.OrderStatus `json:"from,omitempty"`
	To           models.OrderStatus `json:"to"`
	ChangedBy    uint               `json:"changed_by"`
	At           time.Time          `json:"at"`
}

// Publisher delivers order events. Publishing is best effort: callers log failures and carry on.
type Publisher interface {
	PublishOrderStatus(ctx context.Context, event OrderStatusEvent) error
	Close()
}

// Noop discards every event. Used when no broker is configured and in tests.
type Noop struct{}

func (Noop) PublishOrderStatus(context.Context, OrderStatusEvent) error { return nil }
func (Noop) Close()                                                   {}

const (
	qosAtLeastOnce = 1
	publishTimeout = 5 * time.Second
)

// MQTTPublisher sends events to <prefix>/<order id>/status.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	log    *logrus.Logger
}

// Connect dials the broker and returns a publisher bound to it.
func Connect(broker, clientID, prefix string, log *logrus.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(publishTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	log.WithField("broker", broker).Info("connected to mqtt broker")
	return NewMQTTPublisher(client, prefix, log), nil
}

// NewMQTTPublisher wraps an already connected client.
func NewMQTTPublisher(client mqtt.Client, prefix string, log *logrus.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, log: log}
}

// Topic returns the topic an order's events go to.
func (p *MQTTPublisher) Topic(orderID uint) string {
	return fmt.Sprintf("%s/%d/status", p.prefix, orderID)
}

func (p *MQTTPublisher) PublishOrderStatus(ctx context.Context, event OrderStatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.Topic(event.OrderID), qosAtLeastOnce, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish order %d: timed out", event.OrderID)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish order %d: %w", event.OrderID, err)
	}
	p.log.WithFields(logrus.Fields{"order_id": event.OrderID, "status": event.To}).Debug("order event published")
	return nil
}

// Close disconnects, giving in-flight messages a moment to drain.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
