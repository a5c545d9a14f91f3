// Package cron runs the gateway's recurring maintenance jobs.
package cron

import (
	"fmt"
	"log"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

type Service struct {
	mu   sync.Mutex
	cron *rcron.Cron
}

func NewService() *Service {
	return &Service{cron: rcron.New(rcron.WithSeconds())}
}

// Add registers fn under a six-field cron expression.
func (s *Service) Add(name, expr string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.cron.AddFunc(expr, func() {
		log.Printf("[cron] running %s", name)
		fn()
	})
	if err != nil {
		return fmt.Errorf("register job %s (%s): %w", name, expr, err)
	}
	return nil
}

func (s *Service) Start() {
	s.cron.Start()
	log.Printf("[cron] started")
}

func (s *Service) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("[cron] stop timeout waiting for running jobs")
	}
	log.Printf("[cron] stopped")
}
