package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSendPayload(t *testing.T) {
	var received WebhookPayload
	var contentType string
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		contentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	err := n.Send(context.Background(), Event{
		Type:     EventDeploySucceeded,
		Project:  "shop",
		RunID:    7,
		Duration: 42.5,
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "deploy_succeeded", received.Type)
	assert.Equal(t, "shop", received.Project)
	assert.Equal(t, 7, received.RunID)
	assert.Equal(t, "Deploy #7 of shop succeeded in 42.5s", received.Message)
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	err := n.Send(context.Background(), Event{Type: EventDeployFailed, Project: "shop"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL)
	err := n.Send(context.Background(), Event{Type: EventDeployFailed, Project: "shop"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Equal(t, int32(1), calls.Load())
}

// recordingNotifier captures events for manager tests.
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Send(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func TestManagerFansOut(t *testing.T) {
	m := NewManager()
	a := &recordingNotifier{}
	b := &recordingNotifier{}
	m.Register(a)
	m.Register(b)
	require.Equal(t, 2, m.Count())

	err := m.Notify(context.Background(), Event{Type: EventDeploySucceeded, Project: "shop"})
	require.NoError(t, err)
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.False(t, a.events[0].Timestamp.IsZero(), "timestamp is filled in")
}

func TestManagerCollectsDeliveryErrors(t *testing.T) {
	m := NewManager()
	ok := &recordingNotifier{}
	broken := &recordingNotifier{err: fmt.Errorf("connection refused")}
	m.Register(ok)
	m.Register(broken)

	err := m.Notify(context.Background(), Event{Type: EventDeployFailed, Project: "shop"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording")
	assert.Len(t, ok.events, 1, "healthy backends still delivered")
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "deploy succeeded",
			event: Event{Type: EventDeploySucceeded, Project: "shop", RunID: 3, Duration: 12.0},
			want:  "Deploy #3 of shop succeeded in 12.0s",
		},
		{
			name:  "deploy failed",
			event: Event{Type: EventDeployFailed, Project: "shop", RunID: 4, Message: "migrations failed"},
			want:  "Deploy #4 of shop failed: migrations failed",
		},
		{
			name:  "restore complete",
			event: Event{Type: EventRestoreComplete, Project: "shop", Message: "snapshot 20260828_103000"},
			want:  "Restore of shop complete: snapshot 20260828_103000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMessage(tt.event))
		})
	}
}
