// Package channel holds the connection bookkeeping shared by chat-platform
// adapters and the health checks that observe them.
package channel

import (
	"sync"
	"time"
)

// ChannelType identifies a chat platform.
type ChannelType string

// String returns the channel type as a plain string.
func (c ChannelType) String() string {
	return string(c)
}

// ConnectionStatus is the last known state of a platform connection.
type ConnectionStatus struct {
	ChannelType ChannelType   `json:"channel_type"`
	Running     bool          `json:"running"`
	LastError   string        `json:"last_error,omitempty"`
	Latency     time.Duration `json:"latency,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// StatusTracker records connection state transitions. The zero value is
// not usable; call NewStatusTracker.
type StatusTracker struct {
	mu     sync.RWMutex
	status ConnectionStatus
	now    func() time.Time
}

// NewStatusTracker returns a tracker reporting a stopped connection.
func NewStatusTracker(channelType ChannelType) *StatusTracker {
	return &StatusTracker{
		status: ConnectionStatus{ChannelType: channelType},
		now:    time.Now,
	}
}

// MarkRunning records a successful connect and clears the last error.
func (t *StatusTracker) MarkRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Running = true
	t.status.LastError = ""
	t.status.UpdatedAt = t.now().UTC()
}

// MarkStopped records a disconnect. A nil err is a clean stop.
func (t *StatusTracker) MarkStopped(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Running = false
	t.status.LastError = ""
	if err != nil {
		t.status.LastError = err.Error()
	}
	t.status.UpdatedAt = t.now().UTC()
}

// Status returns a copy of the current status.
func (t *StatusTracker) Status() ConnectionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
