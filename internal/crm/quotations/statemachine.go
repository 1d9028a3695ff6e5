package quotations

import (
	"fmt"
	"strings"
	"time"
)

// TransitionEvent enumerates the lifecycle events a caller can request.
type TransitionEvent string

const (
	EventSend   TransitionEvent = "SEND"
	EventView   TransitionEvent = "VIEW"
	EventAccept TransitionEvent = "ACCEPT"
	EventReject TransitionEvent = "REJECT"
	EventExpire TransitionEvent = "EXPIRE"
	EventCancel TransitionEvent = "CANCEL"
)

// ParseEvent normalizes case-insensitive input into the closed enum.
func ParseEvent(s string) (TransitionEvent, error) {
	ev := TransitionEvent(strings.ToUpper(strings.TrimSpace(s)))
	switch ev {
	case EventSend, EventView, EventAccept, EventReject, EventExpire, EventCancel:
		return ev, nil
	}
	return "", fmt.Errorf("unknown transition event %q", s)
}

// transitions is the lifecycle table. EXPIRE is handled separately
// because it applies from any non-terminal state.
var transitions = map[QuotationStatus]map[TransitionEvent]QuotationStatus{
	StatusDraft: {
		EventSend:   StatusSent,
		EventCancel: StatusCancelled,
	},
	StatusSent: {
		EventView:   StatusViewed,
		EventAccept: StatusAccepted,
		EventReject: StatusRejected,
	},
	StatusViewed: {
		EventAccept: StatusAccepted,
		EventReject: StatusRejected,
	},
}

// NextStatus resolves (from, event) against the lifecycle table. An
// unlisted pair, including anything from a terminal state, fails with
// ErrInvalidTransition carrying the current state for the caller.
func NextStatus(from QuotationStatus, event TransitionEvent) (QuotationStatus, error) {
	if event == EventExpire {
		if from.Terminal() {
			return "", fmt.Errorf("%w: cannot expire from %s", ErrInvalidTransition, from)
		}
		return StatusExpired, nil
	}
	if to, ok := transitions[from][event]; ok {
		return to, nil
	}
	return "", fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, strings.ToLower(string(event)), from)
}

// StampForStatus returns which lifecycle timestamp a target status
// sets, or false when the transition stamps nothing.
func StampForStatus(to QuotationStatus) (string, bool) {
	switch to {
	case StatusSent:
		return "sent_at", true
	case StatusViewed:
		return "viewed_at", true
	case StatusAccepted:
		return "accepted_at", true
	case StatusRejected:
		return "rejected_at", true
	}
	return "", false
}

// applyStamp mirrors StampForStatus on the in-memory model. Each
// timestamp is set at most once.
func applyStamp(q *Quotation, to QuotationStatus, now time.Time) {
	switch to {
	case StatusSent:
		if q.SentAt == nil {
			q.SentAt = &now
		}
	case StatusViewed:
		if q.ViewedAt == nil {
			q.ViewedAt = &now
		}
	case StatusAccepted:
		if q.AcceptedAt == nil {
			q.AcceptedAt = &now
		}
	case StatusRejected:
		if q.RejectedAt == nil {
			q.RejectedAt = &now
		}
	}
}
