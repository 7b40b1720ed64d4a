package payment

import (
	"encoding/json"
	"fmt"
	"time"

	"server/internal/domain"
)

// EventKind is the provider's event type string.
type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout.session.completed"
	EventSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
	EventInvoicePaid         EventKind = "invoice.paid"
	EventInvoiceFailed       EventKind = "invoice.payment_failed"
)

// Known reports whether this service understands the event kind. Unknown
// kinds are acknowledged without processing so the provider stops retrying
// them.
func (k EventKind) Known() bool {
	switch k {
	case EventCheckoutCompleted, EventSubscriptionUpdated, EventSubscriptionDeleted,
		EventInvoicePaid, EventInvoiceFailed:
		return true
	}
	return false
}

// Event is the decoded provider notification. The provider delivers events
// at least once and in no particular order; Identity is the de-duplication
// key for applying effects at most once.
type Event struct {
	ID                     string
	Kind                   EventKind
	Created                time.Time
	ExternalSubscriptionID string
	ProviderStatus         string
	Metadata               map[string]string
}

// Identity returns the idempotency key for this event. The provider event
// id wins when present; otherwise the key is derived from the subscription,
// kind and creation time.
func (e *Event) Identity() string {
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprintf("%s:%s:%d", e.ExternalSubscriptionID, e.Kind, e.Created.Unix())
}

type eventEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID           string            `json:"id"`
			Subscription string            `json:"subscription"`
			Status       string            `json:"status"`
			Metadata     map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a raw provider payload. It is called only after the
// signature check passed.
func ParseEvent(body []byte) (*Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode event: %v", domain.ErrValidation, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: event type missing", domain.ErrValidation)
	}

	evt := &Event{
		ID:             env.ID,
		Kind:           EventKind(env.Type),
		Created:        time.Unix(env.Created, 0).UTC(),
		ProviderStatus: env.Data.Object.Status,
		Metadata:       env.Data.Object.Metadata,
	}

	// Checkout sessions and invoices reference the subscription by field;
	// subscription events carry it as the object id.
	switch evt.Kind {
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		evt.ExternalSubscriptionID = env.Data.Object.ID
	default:
		evt.ExternalSubscriptionID = env.Data.Object.Subscription
	}

	return evt, nil
}
