package bot

import (
	"log"
	"math/rand"
	"sync"
	"time"
)

// Scheduler owns the per-conversation idle greeting timers. At most one
// timer is armed per conversation id; Arm while armed is a no-op.
type Scheduler struct {
	minDelay time.Duration
	maxDelay time.Duration
	fire     func(conv Conversation, replayText string)

	mu       sync.Mutex
	timers   map[string]*time.Timer
	disabled map[string]bool
}

func NewScheduler(minDelay, maxDelay time.Duration, fire func(Conversation, string)) *Scheduler {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Scheduler{
		minDelay: minDelay,
		maxDelay: maxDelay,
		fire:     fire,
		timers:   make(map[string]*time.Timer),
		disabled: make(map[string]bool),
	}
}

// Arm schedules a one-shot greeting for the conversation after a randomized
// delay. No-op while a timer is already armed or greetings are disabled for
// this conversation.
func (s *Scheduler) Arm(conv Conversation, replayText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled[conv.ID] {
		return
	}
	if _, ok := s.timers[conv.ID]; ok {
		return
	}

	delay := s.delay()
	s.timers[conv.ID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, conv.ID)
		fire := !s.disabled[conv.ID]
		s.mu.Unlock()
		if fire {
			log.Printf("[greeting] firing for %s", conv.ID)
			s.fire(conv, replayText)
		}
	})
}

// Cancel stops and removes a pending timer, if any.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Disable cancels any pending timer and makes future Arm calls no-ops for
// this conversation.
func (s *Scheduler) Disable(id string) {
	s.mu.Lock()
	s.disabled[id] = true
	s.mu.Unlock()
	s.Cancel(id)
}

// Enable lifts a Disable.
func (s *Scheduler) Enable(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.disabled, id)
}

// Armed reports whether a timer is pending for the conversation.
func (s *Scheduler) Armed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

// Stop cancels all pending timers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) delay() time.Duration {
	if s.maxDelay <= s.minDelay {
		return s.minDelay
	}
	return s.minDelay + time.Duration(rand.Int63n(int64(s.maxDelay-s.minDelay)+1))
}
