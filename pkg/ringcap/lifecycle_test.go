package ringcap

import (
	"testing"
	"time"
)

func TestLifecycleEnableDisableTrigger(t *testing.T) {
	l := newLifecycle()
	if l.get() != StateDisabled {
		t.Fatalf("initial state = %v, want Disabled", l.get())
	}

	if err := l.fire("x", ts(1), 5); err == nil {
		t.Fatalf("trigger from Disabled should fail")
	}

	if err := l.enable(); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if l.get() != StateRecording {
		t.Fatalf("state after enable = %v, want Recording", l.get())
	}
	if err := l.enable(); err != nil {
		t.Fatalf("enable from Recording should be a no-op success, got %v", err)
	}

	if err := l.fire("because", ts(100), 5); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if l.get() != StateTriggered {
		t.Fatalf("state after trigger = %v, want Triggered", l.get())
	}

	if err := l.fire("again", ts(101), 5); err == nil {
		t.Fatalf("second trigger while non-Recording should fail")
	}

	l.disable()
	if l.get() != StateDisabled {
		t.Fatalf("disable should force Disabled from any state")
	}
}

func TestLifecycleWriteTransitions(t *testing.T) {
	l := newLifecycle()
	if err := l.beginWrite(); err == nil {
		t.Fatalf("write while not Triggered should fail")
	}

	_ = l.enable()
	_ = l.fire("r", ts(1), 5)
	if err := l.beginWrite(); err != nil {
		t.Fatalf("beginWrite: %v", err)
	}
	if l.get() != StateWriting {
		t.Fatalf("state = %v, want Writing", l.get())
	}
	l.endWrite()
	if l.get() != StateRecording {
		t.Fatalf("state after endWrite = %v, want Recording", l.get())
	}
}

func TestPostTriggerComplete(t *testing.T) {
	l := newLifecycle()
	_ = l.enable()

	// Not triggered: always complete.
	if !l.postTriggerComplete(time.Unix(0, 0), 5) {
		t.Fatalf("postTriggerComplete should be true when not Triggered")
	}

	triggerAt := time.Unix(1000, 0)
	_ = l.fire("r", Timestamp{Sec: triggerAt.Unix()}, 1)

	if l.postTriggerComplete(triggerAt, 1) {
		t.Fatalf("postTriggerComplete should be false immediately after trigger")
	}
	if !l.postTriggerComplete(triggerAt.Add(time.Second), 1) {
		t.Fatalf("postTriggerComplete should be true once deadline passes")
	}
}

func TestPostTriggerCompleteZeroGrace(t *testing.T) {
	l := newLifecycle()
	_ = l.enable()
	_ = l.fire("r", ts(1), 0)
	if !l.postTriggerComplete(time.Unix(1, 0), 0) {
		t.Fatalf("post_trigger_sec == 0 should be immediately complete")
	}
}
