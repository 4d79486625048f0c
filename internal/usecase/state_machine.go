package usecase

import (
	"time"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/model"
)

// Signal is a normalized payment outcome, whatever channel reported it
type Signal string

const (
	SignalAccepted   Signal = "accepted"
	SignalDeclined   Signal = "declined"
	SignalCancelled  Signal = "cancelled"
	SignalProcessing Signal = "processing"
	SignalExpiry     Signal = "expiry"
	// SignalNoOp stands for a status the engine does not recognize
	SignalNoOp Signal = "noop"
)

// Source identifies which channel produced a signal
type Source string

const (
	SourceWebhook       Source = "webhook"
	SourcePoll          Source = "poll"
	SourceSweep         Source = "sweep"
	SourceManual        Source = "manual"
	SourceSessionCreate Source = "session_create"
)

// Verdict is the classification of a signal against the current state
type Verdict string

const (
	VerdictTransition Verdict = "transition"
	VerdictDuplicate  Verdict = "duplicate"
	VerdictAnomaly    Verdict = "anomaly"
	VerdictIgnored    Verdict = "ignored"
)

// Decision is the output of Decide. Effects are only meaningful for
// VerdictTransition.
type Decision struct {
	Verdict         Verdict
	From            model.SessionStatus
	To              model.SessionStatus
	MarkOrderPaid   bool
	MarkOrderFailed bool
	Notify          bool
	NeedsReview     bool
	Reason          string
}

// Decide evaluates signal against session at now. It is pure; the caller
// persists the outcome.
func Decide(session *model.PaymentSession, signal Signal, now time.Time, policy model.ExpiryPolicy) Decision {
	from := session.Status
	d := Decision{From: from, To: from}

	if signal == SignalNoOp {
		d.Verdict = VerdictIgnored
		d.NeedsReview = true
		d.Reason = "unrecognized status"
		return d
	}

	switch from {
	case model.SessionStatusPending, model.SessionStatusProcessing:
		return decideOpen(d, session, signal, now, policy)
	case model.SessionStatusCompleted:
		switch signal {
		case SignalAccepted:
			d.Verdict = VerdictDuplicate
			d.Reason = "session already completed"
		case SignalDeclined, SignalCancelled:
			d.Verdict = VerdictAnomaly
			d.NeedsReview = true
			d.Reason = "failure signal after completion"
		default:
			d.Verdict = VerdictIgnored
			d.Reason = "stale signal after completion"
		}
	case model.SessionStatusFailed, model.SessionStatusExpired:
		switch {
		case signal == SignalAccepted:
			d.Verdict = VerdictAnomaly
			d.NeedsReview = true
			d.Reason = "payment accepted after session became " + string(from)
		case from == model.SessionStatusFailed && (signal == SignalDeclined || signal == SignalCancelled):
			d.Verdict = VerdictDuplicate
			d.Reason = "session already failed"
		case from == model.SessionStatusExpired && signal == SignalExpiry:
			d.Verdict = VerdictDuplicate
			d.Reason = "session already expired"
		default:
			d.Verdict = VerdictIgnored
			d.Reason = "stale signal on terminal session"
		}
	default:
		d.Verdict = VerdictIgnored
		d.NeedsReview = true
		d.Reason = "unknown session status " + string(from)
	}
	return d
}

func decideOpen(d Decision, session *model.PaymentSession, signal Signal, now time.Time, policy model.ExpiryPolicy) Decision {
	switch signal {
	case SignalAccepted:
		d.Verdict = VerdictTransition
		d.To = model.SessionStatusCompleted
		d.MarkOrderPaid = true
		d.Notify = true
	case SignalDeclined, SignalCancelled:
		d.Verdict = VerdictTransition
		d.To = model.SessionStatusFailed
		d.MarkOrderFailed = true
	case SignalProcessing:
		if d.From == model.SessionStatusProcessing {
			d.Verdict = VerdictDuplicate
			d.Reason = "session already processing"
			return d
		}
		d.Verdict = VerdictTransition
		d.To = model.SessionStatusProcessing
	case SignalExpiry:
		if !session.ExpiredAt(now, policy) {
			d.Verdict = VerdictIgnored
			d.Reason = "expiry window not reached"
			return d
		}
		d.Verdict = VerdictTransition
		d.To = model.SessionStatusExpired
		d.MarkOrderFailed = true
	default:
		d.Verdict = VerdictIgnored
		d.NeedsReview = true
		d.Reason = "unknown signal " + string(signal)
	}
	return d
}
