package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names what happened to a payment.
type EventKind string

const (
	PaymentRecorded EventKind = "payment.recorded"
	PaymentUpdated  EventKind = "payment.updated"
	PaymentDeleted  EventKind = "payment.deleted"
)

// PaymentEvent is a lightweight notification about a payment write. It
// carries ids only; consumers fetch the records they need.
type PaymentEvent struct {
	Kind      EventKind `json:"kind"`
	PaymentID string    `json:"payment_id"`
	StudentID string    `json:"student_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPaymentEvent stamps an event with the current time.
func NewPaymentEvent(kind EventKind, paymentID, studentID string) *PaymentEvent {
	return &PaymentEvent{
		Kind:      kind,
		PaymentID: paymentID,
		StudentID: studentID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *PaymentEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PaymentEventFromJSON decodes an event and checks it names a payment.
func PaymentEventFromJSON(data []byte) (*PaymentEvent, error) {
	var ev PaymentEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.PaymentID == "" {
		return nil, fmt.Errorf("payment event without payment_id")
	}
	switch ev.Kind {
	case PaymentRecorded, PaymentUpdated, PaymentDeleted:
	default:
		return nil, fmt.Errorf("unknown payment event kind %q", ev.Kind)
	}
	return &ev, nil
}
