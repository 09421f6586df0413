package ringcap

import (
	"time"

	"go.uber.org/atomic"
)

// lifecycle owns the four-state machine and the active trigger record (spec
// §4.1). State is mirrored in an atomic so GetState never needs either lock,
// per spec §9 ("readers that only need state may use an atomic").
type lifecycle struct {
	state   atomic.Uint32
	trigger TriggerRecord
}

func newLifecycle() *lifecycle {
	l := &lifecycle{}
	l.state.Store(uint32(StateDisabled))
	return l
}

func (l *lifecycle) get() State {
	return State(l.state.Load())
}

func (l *lifecycle) set(s State) {
	l.state.Store(uint32(s))
}

// enable transitions Disabled->Recording. It is a no-op success from
// Recording, and fails from Triggered/Writing.
func (l *lifecycle) enable() error {
	switch l.get() {
	case StateDisabled:
		l.set(StateRecording)
		return nil
	case StateRecording:
		return nil
	default:
		return ErrStateConflict
	}
}

// disable forces Disabled from any state.
func (l *lifecycle) disable() {
	l.set(StateDisabled)
}

// fire sets up a TriggerRecord and transitions Recording->Triggered. It
// fails unless the current state is Recording (spec §4.1: "only one trigger
// may be active; a second trigger() while non-Recording fails").
func (l *lifecycle) fire(reason string, at Timestamp, postTriggerSec uint32) error {
	if l.get() != StateRecording {
		return ErrStateConflict
	}
	if len(reason) > MaxReasonBytes {
		reason = reason[:MaxReasonBytes]
	}
	l.trigger = TriggerRecord{
		TriggerTime:         at,
		PostTriggerDeadline: at.toTime().Add(time.Duration(postTriggerSec) * time.Second),
		Reason:              reason,
	}
	l.set(StateTriggered)
	return nil
}

// beginWrite transitions Triggered->Writing, failing unless Triggered.
func (l *lifecycle) beginWrite() error {
	if l.get() != StateTriggered {
		return ErrStateConflict
	}
	l.set(StateWriting)
	return nil
}

// endWrite always returns to Recording, whether the write succeeded or not
// (spec §4.1, §4.3, §7: "A failed writer returns the core to Recording").
func (l *lifecycle) endWrite() {
	l.set(StateRecording)
}

// postTriggerComplete reports true when state != Triggered, or now >=
// deadline, or post_trigger_sec == 0 (spec §4.1). It is a pure observer: it
// never transitions state.
func (l *lifecycle) postTriggerComplete(now time.Time, postTriggerSec uint32) bool {
	if l.get() != StateTriggered {
		return true
	}
	if postTriggerSec == 0 {
		return true
	}
	return !now.Before(l.trigger.PostTriggerDeadline)
}
