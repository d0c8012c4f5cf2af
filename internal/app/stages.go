package app

import (
	"context"
	"strconv"
	"time"

	"github.com/hylla/shopfloor/internal/domain"
)

// StartStage starts a stage timer. A ToDo stage enters its kind's first active status.
func (s *Service) StartStage(ctx context.Context, ref StageRef) (domain.Stage, error) {
	return s.mutateStage(ctx, ref, func(stage *domain.Stage, now time.Time) (stageChange, error) {
		if err := stage.StartTimer(now); err != nil {
			return stageChange{}, err
		}
		return stageChange{op: domain.StageOpStart}, nil
	})
}

// PauseStage pauses a running stage timer.
func (s *Service) PauseStage(ctx context.Context, ref StageRef) (domain.Stage, error) {
	return s.mutateStage(ctx, ref, func(stage *domain.Stage, now time.Time) (stageChange, error) {
		segment, err := stage.PauseTimer(now)
		if err != nil {
			return stageChange{}, err
		}
		return stageChange{op: domain.StageOpPause, segment: segment, metadata: segmentMetadata(segment)}, nil
	})
}

// ResetStageTimer zeroes a stage timer.
func (s *Service) ResetStageTimer(ctx context.Context, ref StageRef) (domain.Stage, error) {
	return s.mutateStage(ctx, ref, func(stage *domain.Stage, now time.Time) (stageChange, error) {
		stage.ResetTimer(now)
		return stageChange{op: domain.StageOpReset}, nil
	})
}

// CompleteStage marks a stage done. The checklist must be complete; a running timer is
// paused first.
func (s *Service) CompleteStage(ctx context.Context, ref StageRef) (domain.Stage, error) {
	return s.mutateStage(ctx, ref, func(stage *domain.Stage, now time.Time) (stageChange, error) {
		segment, err := stage.Complete(now)
		if err != nil {
			return stageChange{}, err
		}
		return stageChange{op: domain.StageOpComplete, segment: segment, metadata: segmentMetadata(segment)}, nil
	})
}

// AdvanceStage moves a stage to the next status of its kind's flow.
func (s *Service) AdvanceStage(ctx context.Context, ref StageRef) (domain.Stage, error) {
	return s.mutateStage(ctx, ref, func(stage *domain.Stage, now time.Time) (stageChange, error) {
		segment, err := stage.Advance(now)
		if err != nil {
			return stageChange{}, err
		}
		return stageChange{op: domain.StageOpAdvance, segment: segment, metadata: segmentMetadata(segment)}, nil
	})
}

// segmentMetadata records a folded timer segment for the ledger.
func segmentMetadata(segment time.Duration) map[string]string {
	if segment <= 0 {
		return nil
	}
	return map[string]string{"segment_ms": strconv.FormatInt(segment.Milliseconds(), 10)}
}
