package model

import "fmt"

const (
	StageProbing     = "probing"
	StageDeciding    = "deciding"
	StageBackingUp   = "backing_up"
	StageEncoding    = "encoding"
	StageCommitting  = "committing"
	StageRollingBack = "rolling_back"
)

var allowedStageTransitions = map[string]map[string]bool{
	"": {
		StageProbing:  true,
		OutcomeFailed: true, // input missing before any probe
	},
	StageProbing: {
		StageDeciding: true,
		OutcomeFailed: true,
	},
	StageDeciding: {
		StageBackingUp: true,
		OutcomeSkipped: true,
	},
	StageBackingUp: {
		StageEncoding: true,
		OutcomeFailed: true,
	},
	StageEncoding: {
		StageCommitting:  true,
		StageRollingBack: true,
	},
	StageCommitting: {
		OutcomeCommitted: true,
		StageRollingBack: true, // final rename failed, restore the backup
	},
	StageRollingBack: {
		OutcomeRolledBack: true,
		OutcomeFailed:     true, // restore itself failed
	},
	OutcomeCommitted:  {},
	OutcomeSkipped:    {},
	OutcomeRolledBack: {},
	OutcomeFailed:     {},
}

func IsKnownStage(stage string) bool {
	_, ok := allowedStageTransitions[stage]
	return ok
}

func CanAdvance(from, to string) bool {
	next, ok := allowedStageTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// AdvanceStage moves an attempt through the pipeline's state machine,
// rejecting any jump the table does not allow.
func AdvanceStage(a *Attempt, to string) error {
	from := a.Stage
	if !CanAdvance(from, to) {
		return fmt.Errorf("invalid pipeline stage transition: %q -> %q (path=%s)", from, to, a.Job.Path)
	}
	a.Stage = to
	return nil
}
