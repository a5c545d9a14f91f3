package bot

import (
	"sync"
	"testing"
	"time"
)

func TestScheduler_Fires(t *testing.T) {
	fired := make(chan Conversation, 1)
	s := NewScheduler(10*time.Millisecond, 20*time.Millisecond, func(conv Conversation, replay string) {
		fired <- conv
	})
	defer s.Stop()

	conv := Conversation{ID: "alice", ChatID: "1"}
	s.Arm(conv, "say hi")

	select {
	case got := <-fired:
		if got.ID != "alice" {
			t.Errorf("fired for %q, want alice", got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timer should have fired")
	}

	if s.Armed("alice") {
		t.Error("timer should be cleared after firing")
	}
}

func TestScheduler_ArmWhileArmed(t *testing.T) {
	var mu sync.Mutex
	count := 0
	s := NewScheduler(20*time.Millisecond, 20*time.Millisecond, func(conv Conversation, replay string) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer s.Stop()

	conv := Conversation{ID: "alice"}
	s.Arm(conv, "hi")
	s.Arm(conv, "hi")
	s.Arm(conv, "hi")

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("fired %d times, want 1", count)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := NewScheduler(20*time.Millisecond, 20*time.Millisecond, func(conv Conversation, replay string) {
		fired <- struct{}{}
	})
	defer s.Stop()

	s.Arm(Conversation{ID: "alice"}, "hi")
	s.Cancel("alice")

	select {
	case <-fired:
		t.Error("cancelled timer should not fire")
	case <-time.After(100 * time.Millisecond):
		// OK
	}
}

func TestScheduler_Disable(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := NewScheduler(20*time.Millisecond, 20*time.Millisecond, func(conv Conversation, replay string) {
		fired <- struct{}{}
	})
	defer s.Stop()

	s.Arm(Conversation{ID: "alice"}, "hi")
	s.Disable("alice")

	// Pending timer cancelled and future arms blocked
	s.Arm(Conversation{ID: "alice"}, "hi")
	if s.Armed("alice") {
		t.Error("Arm should be a no-op while disabled")
	}

	select {
	case <-fired:
		t.Error("disabled conversation should not receive greetings")
	case <-time.After(100 * time.Millisecond):
		// OK
	}
}

func TestScheduler_EnableLiftsDisable(t *testing.T) {
	fired := make(chan struct{}, 1)
	s := NewScheduler(10*time.Millisecond, 10*time.Millisecond, func(conv Conversation, replay string) {
		fired <- struct{}{}
	})
	defer s.Stop()

	s.Disable("alice")
	s.Enable("alice")
	s.Arm(Conversation{ID: "alice"}, "hi")

	select {
	case <-fired:
		// OK
	case <-time.After(time.Second):
		t.Fatal("re-enabled conversation should fire")
	}
}

func TestScheduler_Stop(t *testing.T) {
	fired := make(chan struct{}, 2)
	s := NewScheduler(20*time.Millisecond, 20*time.Millisecond, func(conv Conversation, replay string) {
		fired <- struct{}{}
	})

	s.Arm(Conversation{ID: "alice"}, "hi")
	s.Arm(Conversation{ID: "bob"}, "hi")
	s.Stop()

	select {
	case <-fired:
		t.Error("stopped scheduler should not fire")
	case <-time.After(100 * time.Millisecond):
		// OK
	}
	if s.Armed("alice") || s.Armed("bob") {
		t.Error("Stop should clear all timers")
	}
}

func TestScheduler_DelayWithinWindow(t *testing.T) {
	s := NewScheduler(10*time.Millisecond, 11*time.Millisecond, func(Conversation, string) {})
	defer s.Stop()

	for i := 0; i < 50; i++ {
		d := s.delay()
		if d < 10*time.Millisecond || d > 11*time.Millisecond {
			t.Fatalf("delay = %v, want within [10ms, 11ms]", d)
		}
	}
}
