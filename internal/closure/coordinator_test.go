package closure

import (
	"context"
	"sync"
	"testing"
	"time"

	"clearhaven/internal/brokerage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	mu        sync.Mutex
	report    Report
	resumes   []brokerage.ResumeResult
	resumeN   int
	progressN int
}

func (c *scriptedClient) Progress(ctx context.Context, accountID string) (Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progressN++
	return c.report, nil
}

func (c *scriptedClient) Resume(ctx context.Context, accountID, achRelationshipID string) (brokerage.ResumeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var res brokerage.ResumeResult
	if c.resumeN < len(c.resumes) {
		res = c.resumes[c.resumeN]
	}
	c.resumeN++
	return res, nil
}

func (c *scriptedClient) resumeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumeN
}

func (c *scriptedClient) progressCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progressN
}

func startCoordinator(t *testing.T, client ProgressClient) *Coordinator {
	t.Helper()
	coord := NewCoordinator(client, "acct-1", 50*time.Millisecond)
	coord.Tick = time.Millisecond
	coord.RefreshDelay = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = coord.Run(ctx) }()
	return coord
}

func TestCoordinatorPollsAndReportsFailure(t *testing.T) {
	client := &scriptedClient{report: BuildReport("acct-1", brokerage.ProgressSignal{Phase: "transferring", FailedPhase: "transferring"})}
	coord := startCoordinator(t, client)

	require.Eventually(t, func() bool {
		rep, _, ok := coord.Snapshot()
		return ok && rep.HasFailed
	}, time.Second, 5*time.Millisecond)
	rep, state, _ := coord.Snapshot()
	assert.False(t, rep.InProgress)
	assert.False(t, state.AutoRetryEnabled)
}

func TestCoordinatorArmsCountdownAndAutoResumesOnce(t *testing.T) {
	client := &scriptedClient{
		report: BuildReport("acct-1", brokerage.ProgressSignal{Phase: "transferring", FailedPhase: "transferring"}),
		resumes: []brokerage.ResumeResult{
			{Success: false, CanRetry: true, NextRetryInSeconds: 30},
			{Success: false, CanRetry: false},
		},
	}
	coord := startCoordinator(t, client)

	coord.Retry()
	require.Eventually(t, func() bool {
		_, state, _ := coord.Snapshot()
		return state.AutoRetryEnabled
	}, time.Second, time.Millisecond, "countdown should arm from the backend delay")

	// The countdown drains at Tick granularity and fires resume exactly
	// once more.
	require.Eventually(t, func() bool {
		return client.resumeCount() == 2
	}, 2*time.Second, 5*time.Millisecond)

	// The second answer carried no fresh delay, so nothing re-arms and no
	// further resume happens on its own.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 2, client.resumeCount())
	_, state, _ := coord.Snapshot()
	assert.False(t, state.AutoRetryEnabled)
}

func TestCoordinatorResumeSuccessCancelsAndRefetches(t *testing.T) {
	client := &scriptedClient{
		report: BuildReport("acct-1", brokerage.ProgressSignal{Phase: "transferring"}),
		resumes: []brokerage.ResumeResult{
			{Success: true},
		},
	}
	coord := startCoordinator(t, client)
	require.Eventually(t, func() bool { return client.progressCount() >= 1 }, time.Second, time.Millisecond)
	before := client.progressCount()

	coord.Retry()
	require.Eventually(t, func() bool { return client.resumeCount() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return client.progressCount() > before }, time.Second, time.Millisecond,
		"success should trigger a follow-up progress fetch")
	_, state, _ := coord.Snapshot()
	assert.False(t, state.AutoRetryEnabled)
}

func TestCoordinatorManualRetryDoesNotStack(t *testing.T) {
	client := &scriptedClient{
		report:  BuildReport("acct-1", brokerage.ProgressSignal{Phase: "transferring", FailedPhase: "transferring"}),
		resumes: []brokerage.ResumeResult{{Success: false, CanRetry: false}},
	}
	coord := startCoordinator(t, client)
	require.Eventually(t, func() bool { return client.progressCount() >= 1 }, time.Second, time.Millisecond)

	// Burst of clicks queues at most one pending attempt.
	coord.Retry()
	coord.Retry()
	coord.Retry()
	require.Eventually(t, func() bool { return client.resumeCount() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, client.resumeCount(), 2)
}
