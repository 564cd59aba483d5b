package closure

import (
	"testing"

	"clearhaven/internal/brokerage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statuses(steps []Step) []StepStatus {
	out := make([]StepStatus, len(steps))
	for i, s := range steps {
		out[i] = s.Status
	}
	return out
}

func TestBuildStepsOrderIsFixed(t *testing.T) {
	for _, phase := range []string{"", "liquidating", "settling", "transferring", "closing", "done", "???"} {
		steps := BuildSteps(brokerage.ProgressSignal{Phase: phase})
		require.Len(t, steps, 4)
		assert.Equal(t, StepLiquidation, steps[0].Key)
		assert.Equal(t, StepSettlement, steps[1].Key)
		assert.Equal(t, StepTransfer, steps[2].Key)
		assert.Equal(t, StepClosure, steps[3].Key)
	}
}

func TestBuildStepsPhases(t *testing.T) {
	cases := []struct {
		phase string
		want  []StepStatus
	}{
		{"", []StepStatus{StepPending, StepPending, StepPending, StepPending}},
		{"pending", []StepStatus{StepPending, StepPending, StepPending, StepPending}},
		{"liquidating", []StepStatus{StepInProgress, StepPending, StepPending, StepPending}},
		{"liquidated", []StepStatus{StepComplete, StepPending, StepPending, StepPending}},
		{"settling", []StepStatus{StepComplete, StepInProgress, StepPending, StepPending}},
		{"settled", []StepStatus{StepComplete, StepComplete, StepPending, StepPending}},
		{"transferring", []StepStatus{StepComplete, StepComplete, StepInProgress, StepPending}},
		{"transferred", []StepStatus{StepComplete, StepComplete, StepComplete, StepPending}},
		{"closing", []StepStatus{StepComplete, StepComplete, StepComplete, StepInProgress}},
		{"closed", []StepStatus{StepComplete, StepComplete, StepComplete, StepComplete}},
		{"done", []StepStatus{StepComplete, StepComplete, StepComplete, StepComplete}},
	}
	for _, tc := range cases {
		steps := BuildSteps(brokerage.ProgressSignal{Phase: tc.phase})
		assert.Equal(t, tc.want, statuses(steps), "phase %q", tc.phase)
	}
}

func TestBuildStepsUnknownPhaseNeverBlank(t *testing.T) {
	steps := BuildSteps(brokerage.ProgressSignal{Phase: "reticulating"})
	assert.Equal(t, []StepStatus{StepInProgress, StepPending, StepPending, StepPending}, statuses(steps))
}

func TestBuildStepsFailureIsExplicitOnly(t *testing.T) {
	// "no data yet" is pending, not failed
	steps := BuildSteps(brokerage.ProgressSignal{Phase: "pending"})
	for _, s := range steps {
		assert.NotEqual(t, StepFailed, s.Status)
	}

	steps = BuildSteps(brokerage.ProgressSignal{Phase: "transferring", FailedPhase: "transferring"})
	assert.Equal(t, []StepStatus{StepComplete, StepComplete, StepFailed, StepPending}, statuses(steps))

	// unknown failed phase still lands on a step
	steps = BuildSteps(brokerage.ProgressSignal{Phase: "settling", FailedPhase: "mystery"})
	assert.Contains(t, statuses(steps), StepFailed)
}

func TestBuildReportFlags(t *testing.T) {
	rep := BuildReport("acct-1", brokerage.ProgressSignal{Phase: "settling"})
	assert.True(t, rep.InProgress)
	assert.False(t, rep.HasFailed)
	assert.False(t, rep.Complete)

	rep = BuildReport("acct-1", brokerage.ProgressSignal{Phase: "settling", FailedPhase: "settling"})
	assert.True(t, rep.HasFailed)
	assert.False(t, rep.InProgress)

	rep = BuildReport("acct-1", brokerage.ProgressSignal{Phase: "done"})
	assert.True(t, rep.Complete)
	assert.False(t, rep.InProgress)
	assert.False(t, rep.HasFailed)
}
