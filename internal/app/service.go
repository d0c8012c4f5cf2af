package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hylla/shopfloor/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	StageTemplates []StageTemplate
	Recorder       Recorder
}

// StageTemplate is a predefined production step operators can add by id.
type StageTemplate struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Kind               domain.StageKind `json:"kind"`
	PlannedDurationMin int              `json:"planned_duration_min,omitempty"`
	Checklist          []string         `json:"checklist,omitempty"`
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service runs production commands against the repository. Mutations are serialized and
// written through after each command.
type Service struct {
	mu        sync.Mutex
	repo      Repository
	idGen     IDGenerator
	clock     Clock
	templates []StageTemplate
	recorder  Recorder
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	templates := sanitizeStageTemplates(cfg.StageTemplates)
	if len(templates) == 0 {
		templates = DefaultStageTemplates()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		repo:      repo,
		idGen:     idGen,
		clock:     clock,
		templates: templates,
		recorder:  recorder,
	}
}

// DefaultStageTemplates returns the built-in stage catalog.
func DefaultStageTemplates() []StageTemplate {
	return []StageTemplate{
		{ID: "purchasing", Name: "Purchasing", Kind: domain.StageKindInternal, Checklist: []string{"Fabric ordered", "Trims ordered"}},
		{ID: "cutting", Name: "Cutting", Kind: domain.StageKindInternal, Checklist: []string{"Pattern checked", "Pieces counted"}},
		{ID: "sewing", Name: "Sewing", Kind: domain.StageKindInternal},
		{ID: "printing", Name: "Printing", Kind: domain.StageKindOutsourced, Checklist: []string{"Artwork approved"}},
		{ID: "embroidery", Name: "Embroidery", Kind: domain.StageKindOutsourced, Checklist: []string{"Artwork approved"}},
		{ID: "finishing", Name: "Finishing", Kind: domain.StageKindInternal},
		{ID: "quality", Name: "Quality", Kind: domain.StageKindInternal, Checklist: []string{"Sample inspected"}},
		{ID: "packaging", Name: "Packaging", Kind: domain.StageKindInternal},
		{ID: "shipping", Name: "Shipping", Kind: domain.StageKindInternal, Checklist: []string{"Invoice issued"}},
	}
}

// StageTemplates lists the configured templates.
func (s *Service) StageTemplates() []StageTemplate {
	out := make([]StageTemplate, len(s.templates))
	copy(out, s.templates)
	return out
}

// template resolves a template by id or case-insensitive name.
func (s *Service) template(key string) (StageTemplate, error) {
	key = strings.TrimSpace(key)
	for _, tpl := range s.templates {
		if tpl.ID == normalizeTemplateID(key) || strings.EqualFold(tpl.Name, key) {
			return tpl, nil
		}
	}
	return StageTemplate{}, fmt.Errorf("%w: %q", ErrUnknownStage, key)
}

// newCode returns a generated id with a display prefix, or "" when generation fails.
func (s *Service) newCode(prefix string) string {
	id := strings.TrimSpace(s.idGen())
	if id == "" {
		return ""
	}
	return prefix + id
}

// mutateRun loads a run, applies fn, and writes it back under the service lock.
func (s *Service) mutateRun(ctx context.Context, runID string, fn func(*domain.ProductionRun, time.Time) error) (domain.ProductionRun, error) {
	return s.writeRun(ctx, runID, func(run *domain.ProductionRun, now time.Time) (*domain.StageEvent, error) {
		return nil, fn(run, now)
	})
}

// writeRun is mutateRun for changes that also produce a ledger entry. The run and the
// entry are stored in one repository write, so a failed write leaves both untouched.
func (s *Service) writeRun(ctx context.Context, runID string, fn func(*domain.ProductionRun, time.Time) (*domain.StageEvent, error)) (domain.ProductionRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.repo.GetRun(ctx, strings.TrimSpace(runID))
	if err != nil {
		return domain.ProductionRun{}, err
	}
	now := s.clock()
	event, err := fn(&run, now)
	if err != nil {
		return domain.ProductionRun{}, err
	}
	run.Touch(now)
	if event == nil {
		err = s.repo.UpdateRun(ctx, run)
	} else {
		err = s.repo.UpdateRunWithEvent(ctx, run, *event)
	}
	if err != nil {
		return domain.ProductionRun{}, err
	}
	return run, nil
}

// StageRef addresses one stage through its run and item.
type StageRef struct {
	RunID   string `json:"run_id"`
	ItemID  string `json:"item_id"`
	StageID string `json:"stage_id"`
}

// stageChange describes what a stage mutation did, for the ledger and telemetry.
type stageChange struct {
	op       domain.StageOperation
	segment  time.Duration
	metadata map[string]string
}

// mutateStage applies fn to one stage and stores the activity event with the run, then
// records telemetry. Board transitions require a published run whose order is active;
// other stage edits only require an active order.
func (s *Service) mutateStage(ctx context.Context, ref StageRef, fn func(*domain.Stage, time.Time) (stageChange, error)) (domain.Stage, error) {
	var (
		out    domain.Stage
		from   domain.StageStatus
		change stageChange
	)
	_, err := s.writeRun(ctx, ref.RunID, func(run *domain.ProductionRun, now time.Time) (*domain.StageEvent, error) {
		stage, err := run.Stage(ref.ItemID, ref.StageID)
		if err != nil {
			return nil, err
		}
		from = stage.Status
		change, err = fn(stage, now)
		if err != nil {
			return nil, err
		}
		if err := s.checkRunWritable(ctx, *run, change.op.Transition()); err != nil {
			return nil, err
		}
		out = *stage
		return stageEvent(ref, change.op, from, out.Status, change.metadata, now), nil
	})
	if err != nil {
		return domain.Stage{}, err
	}
	if from != out.Status {
		s.recorder.ObserveStageTransition(out.Kind, from, out.Status)
	}
	if change.segment > 0 {
		s.recorder.ObserveTimerSegment(out.Kind, change.segment)
	}
	return out, nil
}

// checkRunWritable rejects stage changes on archived orders, and board transitions on
// runs that are not published.
func (s *Service) checkRunWritable(ctx context.Context, run domain.ProductionRun, transition bool) error {
	if transition && !run.Published {
		return fmt.Errorf("%w: run %s is not published", domain.ErrInvalidState, run.ID)
	}
	order, err := s.repo.GetOrder(ctx, run.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get order %s: %w", run.OrderID, err)
	}
	if order.Archived() {
		return fmt.Errorf("%w: order %s is archived", domain.ErrInvalidState, order.ID)
	}
	return nil
}

// stageEvent builds one ledger entry.
func stageEvent(ref StageRef, op domain.StageOperation, from, to domain.StageStatus, metadata map[string]string, now time.Time) *domain.StageEvent {
	return &domain.StageEvent{
		RunID:      ref.RunID,
		ItemID:     ref.ItemID,
		StageID:    ref.StageID,
		Operation:  op,
		FromStatus: from,
		ToStatus:   to,
		Metadata:   metadata,
		OccurredAt: now.UTC(),
	}
}

// ListStageEvents lists recent activity for one run, newest first.
func (s *Service) ListStageEvents(ctx context.Context, runID string, limit int) ([]domain.StageEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if _, err := s.repo.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.ListStageEvents(ctx, runID, limit)
}

// sanitizeStageTemplates normalizes ids, drops blanks, and removes duplicates.
func sanitizeStageTemplates(in []StageTemplate) []StageTemplate {
	out := make([]StageTemplate, 0, len(in))
	seen := map[string]struct{}{}
	for _, tpl := range in {
		tpl.Name = strings.TrimSpace(tpl.Name)
		if tpl.Name == "" {
			continue
		}
		tpl.ID = normalizeTemplateID(tpl.ID)
		if tpl.ID == "" {
			tpl.ID = normalizeTemplateID(tpl.Name)
		}
		if _, ok := seen[tpl.ID]; ok {
			continue
		}
		if tpl.Kind == "" {
			tpl.Kind = domain.StageKindInternal
		}
		if !tpl.Kind.Valid() {
			continue
		}
		seen[tpl.ID] = struct{}{}
		out = append(out, tpl)
	}
	return out
}

// normalizeTemplateID lower-cases and slugs a template id.
func normalizeTemplateID(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	lastDash := false
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
