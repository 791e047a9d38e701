package notify

import (
	"context"
	"log/slog"

	pubnub "github.com/pubnub/go"

	"event-booker/store"
)

// EventsChannel carries collection-change notifications to every client
// holding a cached copy of the event list.
const EventsChannel = "event-changes"

// SessionChannel returns the per-session channel for booking form
// notifications.
func SessionChannel(sessionID string) string {
	return "booking-" + sessionID
}

// Publisher pushes notifications out of the process. All methods are
// fire-and-forget: delivery problems are logged, never returned to the
// caller.
type Publisher interface {
	store.Broadcaster

	// FormStateChanged signals that the booking form's aggregate emptiness
	// flipped (empty <-> dirty).
	FormStateChanged(ctx context.Context, sessionID string, dirty bool)

	// BookingSucceeded announces a successful tokenization for a session.
	BookingSucceeded(ctx context.Context, sessionID, paymentMethodID string)

	// BookingFailed announces a collaborator-reported failure, carrying the
	// user-visible message.
	BookingFailed(ctx context.Context, sessionID, message string)
}

// PubNubPublisher broadcasts over PubNub channels.
type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) *PubNubPublisher {
	return &PubNubPublisher{pn: pn}
}

func (p *PubNubPublisher) EventsChanged(_ context.Context, change store.ChangeEvent) {
	p.publish(EventsChannel, map[string]interface{}{
		"type":     "events_changed",
		"op":       change.Op,
		"event_id": change.EventID,
	})
}

func (p *PubNubPublisher) FormStateChanged(_ context.Context, sessionID string, dirty bool) {
	p.publish(SessionChannel(sessionID), map[string]interface{}{
		"type":  "form_changed",
		"dirty": dirty,
	})
}

func (p *PubNubPublisher) BookingSucceeded(_ context.Context, sessionID, paymentMethodID string) {
	p.publish(SessionChannel(sessionID), map[string]interface{}{
		"type":           "payment_success",
		"payment_method": paymentMethodID,
	})
}

func (p *PubNubPublisher) BookingFailed(_ context.Context, sessionID, message string) {
	p.publish(SessionChannel(sessionID), map[string]interface{}{
		"type":    "payment_failed",
		"message": message,
	})
}

func (p *PubNubPublisher) publish(channel string, message map[string]interface{}) {
	_, pnStatus, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		slog.Error("notify: publish failed", "channel", channel, "error", err)
		return
	}
	if pnStatus.Error != nil {
		slog.Error("notify: publish rejected", "channel", channel, "statusCode", pnStatus.StatusCode)
	}
}

// Noop is the publisher used when no PubNub keys are configured.
type Noop struct{}

func (Noop) EventsChanged(context.Context, store.ChangeEvent)     {}
func (Noop) FormStateChanged(context.Context, string, bool)       {}
func (Noop) BookingSucceeded(context.Context, string, string)     {}
func (Noop) BookingFailed(context.Context, string, string)        {}
