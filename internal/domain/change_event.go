package domain

import "time"

// StageOperation describes a persisted activity operation on a stage.
type StageOperation string

// StageOperation values used by the stage activity ledger.
const (
	StageOpCreate    StageOperation = "create"
	StageOpUpdate    StageOperation = "update"
	StageOpRemove    StageOperation = "remove"
	StageOpStart     StageOperation = "start"
	StageOpPause     StageOperation = "pause"
	StageOpReset     StageOperation = "reset"
	StageOpComplete  StageOperation = "complete"
	StageOpAdvance   StageOperation = "advance"
	StageOpMove      StageOperation = "move"
	StageOpChecklist StageOperation = "checklist"
)

// Transition reports whether the operation moves a stage along the board.
func (op StageOperation) Transition() bool {
	switch op {
	case StageOpStart, StageOpPause, StageOpReset, StageOpComplete, StageOpAdvance, StageOpMove:
		return true
	default:
		return false
	}
}

// StageEvent is one activity-log entry for a stage.
type StageEvent struct {
	ID         int64             `json:"id"`
	RunID      string            `json:"run_id"`
	ItemID     string            `json:"item_id"`
	StageID    string            `json:"stage_id"`
	Operation  StageOperation    `json:"operation"`
	FromStatus StageStatus       `json:"from_status,omitempty"`
	ToStatus   StageStatus       `json:"to_status,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
