package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutordesk/internal/amqp"
	"tutordesk/internal/core"
	"tutordesk/internal/store/memory"
)

type recordingPublisher struct {
	events []*amqp.PaymentEvent
	err    error
}

func (r *recordingPublisher) PublishPaymentEvent(_ context.Context, ev *amqp.PaymentEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestEventedGatewayPublishesPaymentWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	gw := NewEventedGateway(memory.New(nil), pub, nil)

	sid, err := gw.CreateStudent(ctx, core.Student{Name: "Ahmed", Level: "BAC D"})
	require.NoError(t, err)
	assert.Empty(t, pub.events, "student writes are not announced")

	pid, err := gw.CreatePayment(ctx, core.Payment{StudentID: sid, Amount: "500", Month: "Mars"})
	require.NoError(t, err)
	require.NoError(t, gw.UpdatePayment(ctx, pid, core.Payment{StudentID: sid, Amount: "600", Month: "Mars"}))
	require.NoError(t, gw.DeletePayment(ctx, pid))

	require.Len(t, pub.events, 3)
	assert.Equal(t, amqp.PaymentRecorded, pub.events[0].Kind)
	assert.Equal(t, pid, pub.events[0].PaymentID)
	assert.Equal(t, sid, pub.events[0].StudentID)
	assert.Equal(t, amqp.PaymentUpdated, pub.events[1].Kind)
	assert.Equal(t, amqp.PaymentDeleted, pub.events[2].Kind)
}

func TestEventedGatewayIgnoresPublishFailures(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	gw := NewEventedGateway(memory.New(nil), pub, nil)

	id, err := gw.CreatePayment(ctx, core.Payment{StudentID: "s", Amount: "1", Month: "Mai"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestEventedGatewaySkipsEventsOnFailedWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	gw := NewEventedGateway(memory.New(nil), pub, nil)

	err := gw.DeletePayment(ctx, "missing")
	require.Error(t, err)
	assert.Empty(t, pub.events)
}
