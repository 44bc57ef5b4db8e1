// Package connectivity reports network reachability for the sync engine.
// The device network-state API is the source of truth on mobile; the shell
// feeds its readings in through a StaticChecker. The HTTP probe checker is
// used on desktop, where no platform API is available.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Status is one reachability reading. Connected alone is not enough: a
// link-connected network behind a captive portal has Connected true and
// InternetReachable false, and must be treated as offline.
type Status struct {
	Connected         bool  `json:"connected"`
	InternetReachable *bool `json:"internet_reachable"` // nil = unknown
}

// Online reports whether the sync engine may attempt a remote call.
// Unknown reachability counts as offline (fail-safe toward durability).
func (s Status) Online() bool {
	return s.Connected && s.InternetReachable != nil && *s.InternetReachable
}

// Checker answers "are we online right now".
type Checker interface {
	// Check returns the current reachability reading. An error means the
	// oracle itself failed; callers must treat that as offline.
	Check(ctx context.Context) (Status, error)
}

// =====================================================
// HTTP probe checker
// =====================================================

// ProbeChecker confirms internet reachability with a lightweight HTTP
// request to a known 204 endpoint. A captive portal answers with its own
// page instead of 204, which correctly reads as unreachable.
type ProbeChecker struct {
	url    string
	client *http.Client
}

// NewProbeChecker creates a ProbeChecker against the given probe URL.
func NewProbeChecker(url string, timeout time.Duration) *ProbeChecker {
	return &ProbeChecker{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Check implements Checker.
func (c *ProbeChecker) Check(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Status{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Probe failure: assume the link itself is down.
		return Status{Connected: false}, nil
	}
	defer resp.Body.Close()

	reachable := resp.StatusCode == http.StatusNoContent
	return Status{Connected: true, InternetReachable: &reachable}, nil
}

// =====================================================
// Static checker (shell-fed readings, also the test double)
// =====================================================

// StaticChecker holds a reading pushed in by the host shell's network
// monitor. Safe for concurrent use.
type StaticChecker struct {
	mu     sync.RWMutex
	status Status
	err    error
}

// NewStaticChecker creates a StaticChecker with an initial reading.
func NewStaticChecker(status Status) *StaticChecker {
	return &StaticChecker{status: status}
}

// Set replaces the current reading.
func (c *StaticChecker) Set(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.err = nil
}

// SetError makes the next Check fail, simulating an oracle failure.
func (c *StaticChecker) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Check implements Checker.
func (c *StaticChecker) Check(ctx context.Context) (Status, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.err != nil {
		return Status{}, c.err
	}
	return c.status, nil
}

// Online is a convenience constructor for a connected, reachable reading.
func Online() Status {
	reachable := true
	return Status{Connected: true, InternetReachable: &reachable}
}

// Offline is a convenience constructor for a disconnected reading.
func Offline() Status {
	return Status{Connected: false}
}

// CaptivePortal is a connected-but-unreachable reading.
func CaptivePortal() Status {
	reachable := false
	return Status{Connected: true, InternetReachable: &reachable}
}
