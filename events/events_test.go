package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"delivery-marketplace/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct {
	err  error
	done chan struct{}
}

func newDoneToken(err error) *doneToken {
	t := &doneToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient records publishes; other mqtt.Client methods are not used by the publisher.
type fakeClient struct {
	mqtt.Client
	sent         []published
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return newDoneToken(c.err)
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPublishOrderStatus(t *testing.T) {
	client := &fakeClient{}
	p := NewMQTTPublisher(client, "orders", quietLogger())

	event := OrderStatusEvent{OrderID: 42, RestaurantID: 3, CustomerID: 9, From: models.StatusPending, To: models.StatusAccepted, ChangedBy: 4, At: time.Now().UTC()}
	require.NoError(t, p.PublishOrderStatus(context.Background(), event))

	require.Len(t, client.sent, 1)
	assert.Equal(t, "orders/42/status", client.sent[0].topic)
	assert.Equal(t, byte(1), client.sent[0].qos)

	var got OrderStatusEvent
	require.NoError(t, json.Unmarshal(client.sent[0].payload, &got))
	assert.Equal(t, models.StatusAccepted, got.To)
	assert.Equal(t, uint(42), got.OrderID)
}

func TestPublishOrderStatusError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	p := NewMQTTPublisher(client, "orders", quietLogger())

	err := p.PublishOrderStatus(context.Background(), OrderStatusEvent{OrderID: 1, To: models.StatusPending})
	assert.ErrorContains(t, err, "not connected")
}

func TestCloseDisconnects(t *testing.T) {
	client := &fakeClient{}
	NewMQTTPublisher(client, "orders", quietLogger()).Close()
	assert.True(t, client.disconnected)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.PublishOrderStatus(context.Background(), OrderStatusEvent{}))
	p.Close()
}
