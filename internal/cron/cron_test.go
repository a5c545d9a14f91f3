package cron

import (
	"testing"
	"time"
)

func TestService_AddAndRun(t *testing.T) {
	s := NewService()

	ran := make(chan struct{}, 1)
	if err := s.Add("tick", "* * * * * *", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	s.Start()
	defer s.Stop()

	select {
	case <-ran:
		// OK
	case <-time.After(3 * time.Second):
		t.Fatal("job should have run within the every-second schedule")
	}
}

func TestService_Add_BadExpr(t *testing.T) {
	s := NewService()
	if err := s.Add("bad", "not a cron expr", func() {}); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestService_Stop_NoJobs(t *testing.T) {
	s := NewService()
	s.Start()
	s.Stop() // must not hang or panic
}
