package closure

import (
	"context"
	"log"
	"sync"
	"time"

	"clearhaven/internal/brokerage"
)

// ProgressClient is the surface the coordinator polls. In production it is
// an HTTP client for this service's own API (cmd/closurewatch); tests use
// a fake.
type ProgressClient interface {
	Progress(ctx context.Context, accountID string) (Report, error)
	Resume(ctx context.Context, accountID, achRelationshipID string) (brokerage.ResumeResult, error)
}

// RetryState mirrors what a UI shows next to the retry button. It lives
// only for the coordinator's lifetime; a restart discards it and the next
// resume call re-derives scheduling from the backend.
type RetryState struct {
	AutoRetryEnabled   bool `json:"auto_retry_enabled"`
	NextRetryInSeconds int  `json:"next_retry_in_seconds"`
}

// Coordinator is a session-scoped cooperative scheduler: one goroutine, one
// in-flight poll at a time. It refreshes progress on a fixed interval,
// and when a resume attempt comes back "not yet retryable" it arms a
// countdown from the backend-issued delay and re-invokes resume exactly
// once at zero. Re-arming always requires a fresh delay from the backend,
// so there is no tight retry loop.
type Coordinator struct {
	// Tick is the countdown granularity; defaults to one second.
	Tick time.Duration
	// RefreshDelay is how long after a successful resume the next
	// progress fetch happens.
	RefreshDelay time.Duration
	// OnUpdate, when set, observes every refreshed report.
	OnUpdate func(Report)

	client   ProgressClient
	account  string
	interval time.Duration
	retryCh  chan struct{}

	mu        sync.Mutex
	report    Report
	haveRep   bool
	armed     bool
	countdown int
}

func NewCoordinator(client ProgressClient, accountID string, interval time.Duration) *Coordinator {
	return &Coordinator{
		Tick:         time.Second,
		RefreshDelay: 2 * time.Second,
		client:       client,
		account:      accountID,
		interval:     interval,
		retryCh:      make(chan struct{}, 1),
	}
}

// Retry requests a resume attempt, as a user clicking the retry button
// would. It never blocks; a request already queued is enough.
func (c *Coordinator) Retry() {
	select {
	case c.retryCh <- struct{}{}:
	default:
	}
}

// Snapshot returns the latest report and the current retry state.
func (c *Coordinator) Snapshot() (Report, RetryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := RetryState{AutoRetryEnabled: c.armed, NextRetryInSeconds: c.countdown}
	return c.report, state, c.haveRep
}

// Run drives the poll loop until ctx is cancelled. Cancelling tears down
// any armed countdown with it.
func (c *Coordinator) Run(ctx context.Context) error {
	c.poll(ctx)
	pollT := time.NewTicker(c.interval)
	defer pollT.Stop()
	secT := time.NewTicker(c.Tick)
	defer secT.Stop()
	var repoll <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pollT.C:
			c.poll(ctx)
		case <-repoll:
			repoll = nil
			c.poll(ctx)
		case <-c.retryCh:
			repoll = c.resume(ctx)
		case <-secT.C:
			c.mu.Lock()
			fire := false
			if c.armed {
				c.countdown--
				if c.countdown <= 0 {
					c.armed = false
					c.countdown = 0
					fire = true
				}
			}
			c.mu.Unlock()
			if fire {
				repoll = c.resume(ctx)
			}
		}
	}
}

func (c *Coordinator) poll(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	rep, err := c.client.Progress(cctx, c.account)
	cancel()
	if err != nil {
		log.Printf("coordinator: progress fetch failed: %v", err)
		return
	}
	c.mu.Lock()
	c.report = rep
	c.haveRep = true
	cb := c.OnUpdate
	c.mu.Unlock()
	if cb != nil {
		cb(rep)
	}
}

// resume invokes resume once. Success cancels any armed countdown and
// returns a timer for the follow-up progress fetch; a retryable answer
// arms the countdown from the backend's delay; anything else disarms.
func (c *Coordinator) resume(ctx context.Context) <-chan time.Time {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	res, err := c.client.Resume(cctx, c.account, "")
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
	c.countdown = 0
	if err != nil {
		log.Printf("coordinator: resume failed: %v", err)
		return nil
	}
	if res.Success {
		return time.After(c.RefreshDelay)
	}
	if res.CanRetry && res.NextRetryInSeconds > 0 {
		c.armed = true
		c.countdown = res.NextRetryInSeconds
	}
	return nil
}
