// Package notify delivers deploy outcome notifications to external
// endpoints.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// EventType classifies a notification event.
type EventType string

const (
	EventDeploySucceeded EventType = "deploy_succeeded"
	EventDeployFailed    EventType = "deploy_failed"
	EventRestoreComplete EventType = "restore_complete"
)

// Event is one notification about the active project.
type Event struct {
	Type      EventType
	Project   string
	RunID     int
	Duration  float64
	Message   string
	Timestamp time.Time
}

// Notifier is a delivery backend.
type Notifier interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// Manager fans an event out to every registered backend. Deliveries
// run concurrently; failures are collected, never fatal to the caller.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates an empty notification manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a backend.
func (m *Manager) Register(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Count returns the number of registered backends.
func (m *Manager) Count() int {
	return len(m.notifiers)
}

// Notify sends an event to all backends and returns the joined
// delivery errors, if any.
func (m *Manager) Notify(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, n := range m.notifiers {
		wg.Add(1)
		go func(notifier Notifier) {
			defer wg.Done()
			if err := notifier.Send(ctx, event); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %v", errs)
	}
	return nil
}

// FormatMessage builds a human-readable summary of an event.
func FormatMessage(event Event) string {
	switch event.Type {
	case EventDeploySucceeded:
		return fmt.Sprintf("Deploy #%d of %s succeeded in %.1fs", event.RunID, event.Project, event.Duration)
	case EventDeployFailed:
		return fmt.Sprintf("Deploy #%d of %s failed: %s", event.RunID, event.Project, event.Message)
	case EventRestoreComplete:
		return fmt.Sprintf("Restore of %s complete: %s", event.Project, event.Message)
	default:
		return fmt.Sprintf("[%s] %s: %s", event.Type, event.Project, event.Message)
	}
}

// retryableSend retries transient HTTP failures with exponential
// backoff. Client errors (4xx) are returned immediately.
func retryableSend(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
