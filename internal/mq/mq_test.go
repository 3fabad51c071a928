package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDelivery struct {
	acked, nacked, requeue bool
}

func (d *fakeDelivery) Ack(bool) error {
	d.acked = true
	return nil
}

func (d *fakeDelivery) Nack(_, requeue bool) error {
	d.nacked, d.requeue = true, requeue
	return nil
}

func TestSettle_AcksOnSuccess(t *testing.T) {
	d := &fakeDelivery{}
	var seen []byte
	Settle(context.Background(), zap.NewNop(), func(_ context.Context, body []byte) error {
		seen = body
		return nil
	}, d, []byte(`{"x":1}`))

	require.True(t, d.acked)
	require.False(t, d.nacked)
	require.JSONEq(t, `{"x":1}`, string(seen))
}

func TestSettle_NacksToDLQOnFailure(t *testing.T) {
	d := &fakeDelivery{}
	Settle(context.Background(), zap.NewNop(), func(context.Context, []byte) error {
		return errors.New("boom")
	}, d, nil)

	require.False(t, d.acked)
	require.True(t, d.nacked)
	require.False(t, d.requeue)
}

func TestNewEvent(t *testing.T) {
	ev := NewEvent(EventPaymentCreated, map[string]int64{"payment_id": 9})
	require.NotEmpty(t, ev.ID)
	require.Equal(t, EventPaymentCreated, ev.Type)

	body, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "payment.created", decoded["type"])
	require.Contains(t, decoded, "event_id")
	require.Contains(t, decoded, "occurred_at")

	require.NoError(t, NopPublisher{}.Publish(context.Background(), ev))
}
