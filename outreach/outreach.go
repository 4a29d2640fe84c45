// Package outreach delivers personalized emails to leads.
//
// Every email is first stored as a draft. Sending is a separate step that
// the pipeline only takes when direct sending is enabled.
package outreach

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoRecipient is returned for a message without a recipient address.
var ErrNoRecipient = errors.New("message has no recipient")

// Message is an email to one lead.
type Message struct {
	LeadID  string
	To      string
	ToName  string
	Subject string
	// Body is plain text. Paragraphs are separated by blank lines.
	Body string
}

// Validate checks the message can be delivered.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: lead %s", ErrNoRecipient, m.LeadID)
	}
	return nil
}

// Draft is a stored, unsent message.
type Draft struct {
	ID string
	// Location is where the draft can be opened, such as a file path.
	Location string
}

// Receipt describes a dispatched message.
type Receipt struct {
	ID            string
	TrackingToken string
	SentAt        time.Time
}

// Deliverer stores drafts and dispatches messages.
type Deliverer interface {
	CreateDraft(ctx context.Context, msg Message) (Draft, error)
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// NewTrackingToken returns a random 16 character token.
func NewTrackingToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Outbox is an in-memory Deliverer for dry runs and tests.
type Outbox struct {
	mu     sync.Mutex
	drafts []Message
	sent   []Message
	// SendErr, when set, is returned by every Send.
	SendErr error
}

var _ Deliverer = (*Outbox)(nil)

// CreateDraft implements Deliverer.
func (o *Outbox) CreateDraft(ctx context.Context, msg Message) (Draft, error) {
	if err := msg.Validate(); err != nil {
		return Draft{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.drafts = append(o.drafts, msg)
	id := fmt.Sprintf("draft-%d", len(o.drafts))
	return Draft{ID: id, Location: "outbox:" + id}, nil
}

// Send implements Deliverer.
func (o *Outbox) Send(ctx context.Context, msg Message) (Receipt, error) {
	if err := msg.Validate(); err != nil {
		return Receipt{}, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.SendErr != nil {
		return Receipt{}, o.SendErr
	}
	o.sent = append(o.sent, msg)
	return Receipt{
		ID:            fmt.Sprintf("sent-%d", len(o.sent)),
		TrackingToken: NewTrackingToken(),
		SentAt:        time.Now(),
	}, nil
}

// Drafts returns the drafted messages in order.
func (o *Outbox) Drafts() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.drafts)
}

// Sent returns the dispatched messages in order.
func (o *Outbox) Sent() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.sent)
}
