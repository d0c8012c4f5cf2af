package app

import (
	"context"
	"strconv"
	"time"

	"github.com/hylla/shopfloor/internal/domain"
)

// AddChecklistItem appends an open item to a stage checklist.
func (s *Service) AddChecklistItem(ctx context.Context, ref StageRef, text string) (domain.Stage, error) {
	return s.checklistOp(ctx, ref, "add", func(stage *domain.Stage) (map[string]string, error) {
		item, err := stage.Checklist.Add(s.idGen(), text)
		if err != nil {
			return nil, err
		}
		return map[string]string{"item_id": item.ID, "text": item.Text}, nil
	})
}

// ToggleChecklistItem flips one item's done flag.
func (s *Service) ToggleChecklistItem(ctx context.Context, ref StageRef, itemID string) (domain.Stage, error) {
	return s.checklistOp(ctx, ref, "toggle", func(stage *domain.Stage) (map[string]string, error) {
		item, err := stage.Checklist.Toggle(itemID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"item_id": item.ID, "done": strconv.FormatBool(item.Done)}, nil
	})
}

// RenameChecklistItem replaces one item's text.
func (s *Service) RenameChecklistItem(ctx context.Context, ref StageRef, itemID, text string) (domain.Stage, error) {
	return s.checklistOp(ctx, ref, "rename", func(stage *domain.Stage) (map[string]string, error) {
		item, err := stage.Checklist.Rename(itemID, text)
		if err != nil {
			return nil, err
		}
		return map[string]string{"item_id": item.ID, "text": item.Text}, nil
	})
}

// RemoveChecklistItem deletes one item. Missing ids fail with ErrNotFound.
func (s *Service) RemoveChecklistItem(ctx context.Context, ref StageRef, itemID string) (domain.Stage, error) {
	return s.checklistOp(ctx, ref, "remove", func(stage *domain.Stage) (map[string]string, error) {
		if err := stage.Checklist.Remove(itemID); err != nil {
			return nil, err
		}
		return map[string]string{"item_id": itemID}, nil
	})
}

// MarkAllChecklist sets every item of a stage checklist to done.
func (s *Service) MarkAllChecklist(ctx context.Context, ref StageRef, done bool) (domain.Stage, error) {
	return s.checklistOp(ctx, ref, "mark_all", func(stage *domain.Stage) (map[string]string, error) {
		stage.Checklist.MarkAll(done)
		return map[string]string{"done": strconv.FormatBool(done)}, nil
	})
}

func (s *Service) checklistOp(ctx context.Context, ref StageRef, op string, fn func(*domain.Stage) (map[string]string, error)) (domain.Stage, error) {
	stage, err := s.mutateStage(ctx, ref, func(stage *domain.Stage, now time.Time) (stageChange, error) {
		metadata, err := fn(stage)
		if err != nil {
			return stageChange{}, err
		}
		stage.Touch(now)
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["op"] = op
		return stageChange{op: domain.StageOpChecklist, metadata: metadata}, nil
	})
	if err != nil {
		return domain.Stage{}, err
	}
	s.recorder.IncChecklistOp(op)
	return stage, nil
}
