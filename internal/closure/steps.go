package closure

import "clearhaven/internal/brokerage"

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in-progress"
	StepComplete   StepStatus = "complete"
	StepFailed     StepStatus = "failed"
)

type Step struct {
	Key    string     `json:"key"`
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
}

const (
	StepLiquidation = "liquidation"
	StepSettlement  = "settlement"
	StepTransfer    = "transfer"
	StepClosure     = "closure"
)

// stepOrder is the fixed, ordered step list every progress response is
// mapped onto. The order never changes between polls.
var stepOrder = []struct {
	key   string
	label string
}{
	{StepLiquidation, "Liquidate positions"},
	{StepSettlement, "Wait for settlement"},
	{StepTransfer, "Transfer funds"},
	{StepClosure, "Close account"},
}

// phaseMarks maps a backend phase onto (active step index, whether that
// step is currently running). Phases the backend reports between steps
// ("liquidated", "settled", ...) leave the next step pending rather than
// in-progress: nothing is running, nothing has failed.
var phaseMarks = map[string]struct {
	active  int
	running bool
}{
	"":             {0, false},
	"pending":      {0, false},
	"queued":       {0, false},
	"liquidating":  {0, true},
	"liquidated":   {1, false},
	"settling":     {1, true},
	"settled":      {2, false},
	"transferring": {2, true},
	"transferred":  {3, false},
	"closing":      {3, true},
	"closed":       {len(stepOrder), false},
	"done":         {len(stepOrder), false},
}

// phaseStep locates the step a failed phase belongs to.
var phaseStep = map[string]int{
	"liquidating": 0, "liquidated": 0,
	"settling": 1, "settled": 1,
	"transferring": 2, "transferred": 2,
	"closing": 3, "closed": 3,
}

// BuildSteps derives the step list from a single backend signal. It holds
// no memory of prior polls; every call recomputes from scratch. Unknown
// phases map onto the first step in progress so the caller never sees a
// blank state, and a step is failed only on an explicit terminal error.
func BuildSteps(sig brokerage.ProgressSignal) []Step {
	mark, known := phaseMarks[sig.Phase]
	if !known {
		mark.active, mark.running = 0, true
	}

	steps := make([]Step, 0, len(stepOrder))
	for i, def := range stepOrder {
		st := StepPending
		switch {
		case i < mark.active:
			st = StepComplete
		case i == mark.active && mark.running:
			st = StepInProgress
		}
		steps = append(steps, Step{Key: def.key, Label: def.label, Status: st})
	}

	if sig.FailedPhase != "" {
		idx, ok := phaseStep[sig.FailedPhase]
		if !ok {
			idx = mark.active
			if idx >= len(steps) {
				idx = len(steps) - 1
			}
		}
		steps[idx].Status = StepFailed
		for i := idx + 1; i < len(steps); i++ {
			steps[i].Status = StepPending
		}
	}
	return steps
}

// Report is the aggregated progress view handed to clients and published on
// the event bus.
type Report struct {
	AccountID  string `json:"account_id"`
	Phase      string `json:"phase"`
	Steps      []Step `json:"steps"`
	HasFailed  bool   `json:"has_failed"`
	InProgress bool   `json:"in_progress"`
	Complete   bool   `json:"complete"`
}

func BuildReport(accountID string, sig brokerage.ProgressSignal) Report {
	steps := BuildSteps(sig)
	rep := Report{AccountID: accountID, Phase: sig.Phase, Steps: steps, Complete: true}
	for _, s := range steps {
		switch s.Status {
		case StepFailed:
			rep.HasFailed = true
		case StepInProgress:
			rep.InProgress = true
		}
		if s.Status != StepComplete {
			rep.Complete = false
		}
	}
	return rep
}
