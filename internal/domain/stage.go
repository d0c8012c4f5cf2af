package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// StageKind separates in-house steps from steps sent to a third party.
type StageKind string

const (
	StageKindInternal   StageKind = "internal"
	StageKindOutsourced StageKind = "outsourced"
)

// StageStatus is a board column for a stage.
type StageStatus string

const (
	StatusToDo            StageStatus = "todo"
	StatusInProgress      StageStatus = "in_progress"
	StatusOutboundTransit StageStatus = "outbound_transit"
	StatusAtThirdParty    StageStatus = "at_third_party"
	StatusReturnTransit   StageStatus = "return_transit"
	StatusDone            StageStatus = "done"
)

// stageFlows is the closed, ordered status set per kind. Advance follows the order.
var stageFlows = map[StageKind][]StageStatus{
	StageKindInternal:   {StatusToDo, StatusInProgress, StatusDone},
	StageKindOutsourced: {StatusToDo, StatusOutboundTransit, StatusAtThirdParty, StatusReturnTransit, StatusDone},
}

var statusLabels = map[StageStatus]string{
	StatusToDo:            "To Do",
	StatusInProgress:      "In Progress",
	StatusOutboundTransit: "Outbound Transit",
	StatusAtThirdParty:    "At Third Party",
	StatusReturnTransit:   "Return Transit",
	StatusDone:            "Done",
}

// AllStatuses lists every status in board order.
func AllStatuses() []StageStatus {
	return []StageStatus{StatusToDo, StatusInProgress, StatusOutboundTransit, StatusAtThirdParty, StatusReturnTransit, StatusDone}
}

// Valid reports whether k is a known kind.
func (k StageKind) Valid() bool {
	_, ok := stageFlows[k]
	return ok
}

// Statuses returns the ordered status set for k.
func (k StageKind) Statuses() []StageStatus {
	return slices.Clone(stageFlows[k])
}

// Allows reports whether status belongs to k's status set.
func (k StageKind) Allows(status StageStatus) bool {
	return slices.Contains(stageFlows[k], status)
}

// FirstActive returns the status a stage enters when work begins.
func (k StageKind) FirstActive() StageStatus {
	flow := stageFlows[k]
	if len(flow) < 2 {
		return StatusInProgress
	}
	return flow[1]
}

// Next returns the status after from in k's flow.
func (k StageKind) Next(from StageStatus) (StageStatus, bool) {
	flow := stageFlows[k]
	idx := slices.Index(flow, from)
	if idx < 0 || idx+1 >= len(flow) {
		return "", false
	}
	return flow[idx+1], true
}

// Label returns a display label.
func (s StageStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Valid reports whether s is a known status.
func (s StageStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// InFlight reports whether work on the stage has begun but not finished.
func (s StageStatus) InFlight() bool {
	return s != StatusToDo && s != StatusDone && s.Valid()
}

// OutsourcingDetails tracks a stage handed to an outside partner.
type OutsourcingDetails struct {
	Partner          string     `json:"partner,omitempty"`
	TrackingCode     string     `json:"tracking_code,omitempty"`
	FreightOutCents  int64      `json:"freight_out_cents,omitempty"`
	FreightBackCents int64      `json:"freight_back_cents,omitempty"`
	ReturnETA        *time.Time `json:"return_eta,omitempty"`
}

// Stage is one production step for an order item.
type Stage struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Kind               StageKind           `json:"kind"`
	Status             StageStatus         `json:"status"`
	PlannedDurationMin int                 `json:"planned_duration_min,omitempty"`
	Timer              Timer               `json:"timer"`
	Checklist          Checklist           `json:"checklist"`
	PlannedBySize      SizeQuantities      `json:"planned_by_size"`
	ProducedBySize     SizeQuantities      `json:"produced_by_size"`
	Deadline           *time.Time          `json:"deadline,omitempty"`
	Outsourcing        *OutsourcingDetails `json:"outsourcing,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
}

// StageInput holds values for NewStage.
type StageInput struct {
	ID                 string
	Name               string
	Kind               StageKind
	PlannedDurationMin int
	PlannedBySize      SizeQuantities
	Deadline           *time.Time
	Checklist          Checklist
	Outsourcing        *OutsourcingDetails
}

// NewStage builds a ToDo stage with a stopped timer.
func NewStage(in StageInput, now time.Time) (Stage, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if in.ID == "" {
		return Stage{}, ErrInvalidID
	}
	if in.Name == "" {
		return Stage{}, ErrInvalidName
	}
	if in.Kind == "" {
		in.Kind = StageKindInternal
	}
	if !in.Kind.Valid() {
		return Stage{}, ErrInvalidKind
	}
	if in.PlannedDurationMin < 0 {
		return Stage{}, fmt.Errorf("%w: planned duration must be >= 0", ErrValidation)
	}
	planned, err := normalizeSizeQuantities(in.PlannedBySize)
	if err != nil {
		return Stage{}, err
	}
	checklist, err := normalizeChecklist(in.Checklist)
	if err != nil {
		return Stage{}, err
	}
	return Stage{
		ID:                 in.ID,
		Name:               in.Name,
		Kind:               in.Kind,
		Status:             StatusToDo,
		PlannedDurationMin: in.PlannedDurationMin,
		Checklist:          checklist,
		PlannedBySize:      planned,
		ProducedBySize:     SizeQuantities{},
		Deadline:           normalizeTS(in.Deadline),
		Outsourcing:        normalizeOutsourcing(in.Kind, in.Outsourcing),
		CreatedAt:          now.UTC(),
		UpdatedAt:          now.UTC(),
	}, nil
}

// StartTimer starts the timer. A ToDo stage moves to its kind's first active status.
func (s *Stage) StartTimer(now time.Time) error {
	if s.Status == StatusDone {
		return fmt.Errorf("%w: stage %q is done", ErrInvalidState, s.ID)
	}
	if err := s.Timer.Start(now); err != nil {
		return err
	}
	if s.Status == StatusToDo {
		s.Status = s.Kind.FirstActive()
	}
	s.UpdatedAt = now.UTC()
	return nil
}

// PauseTimer pauses the timer and returns the folded segment.
func (s *Stage) PauseTimer(now time.Time) (time.Duration, error) {
	segment, err := s.Timer.Pause(now)
	if err != nil {
		return 0, err
	}
	s.UpdatedAt = now.UTC()
	return segment, nil
}

// ResetTimer zeroes the timer.
func (s *Stage) ResetTimer(now time.Time) {
	s.Timer.Reset()
	s.UpdatedAt = now.UTC()
}

// Complete marks the stage done, pausing a running timer first.
// The returned duration is the segment folded by that pause, if any.
func (s *Stage) Complete(now time.Time) (time.Duration, error) {
	if s.Status == StatusDone {
		return 0, fmt.Errorf("%w: stage %q is already done", ErrInvalidState, s.ID)
	}
	return s.SetStatus(StatusDone, now)
}

// Advance moves the stage to the next status in its kind's flow.
func (s *Stage) Advance(now time.Time) (time.Duration, error) {
	next, ok := s.Kind.Next(s.Status)
	if !ok {
		return 0, fmt.Errorf("%w: stage %q has no next status after %s", ErrInvalidState, s.ID, s.Status)
	}
	return s.SetStatus(next, now)
}

// SetStatus sets any status from the stage kind's set. Done requires a complete checklist
// and pauses a running timer.
func (s *Stage) SetStatus(status StageStatus, now time.Time) (time.Duration, error) {
	if !s.Kind.Allows(status) {
		return 0, fmt.Errorf("%w: status %q is not valid for %s stages", ErrInvalidState, status, s.Kind)
	}
	var segment time.Duration
	if status == StatusDone && s.Status != StatusDone {
		if pending := s.Checklist.Pending(); pending > 0 {
			return 0, fmt.Errorf("%w: checklist has %d open item(s)", ErrValidation, pending)
		}
		if s.Timer.Running {
			d, err := s.Timer.Pause(now)
			if err != nil {
				return 0, err
			}
			segment = d
		}
		ts := now.UTC()
		s.CompletedAt = &ts
	}
	if status != StatusDone {
		s.CompletedAt = nil
	}
	s.Status = status
	s.UpdatedAt = now.UTC()
	return segment, nil
}

// StageDetails holds editable stage fields.
type StageDetails struct {
	Name               string
	PlannedDurationMin int
	PlannedBySize      SizeQuantities
	ProducedBySize     SizeQuantities
	Deadline           *time.Time
	Outsourcing        *OutsourcingDetails
}

// UpdateDetails replaces editable fields.
func (s *Stage) UpdateDetails(in StageDetails, now time.Time) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ErrInvalidName
	}
	if in.PlannedDurationMin < 0 {
		return fmt.Errorf("%w: planned duration must be >= 0", ErrValidation)
	}
	planned, err := normalizeSizeQuantities(in.PlannedBySize)
	if err != nil {
		return err
	}
	produced, err := normalizeSizeQuantities(in.ProducedBySize)
	if err != nil {
		return err
	}
	s.Name = name
	s.PlannedDurationMin = in.PlannedDurationMin
	s.PlannedBySize = planned
	s.ProducedBySize = produced
	s.Deadline = normalizeTS(in.Deadline)
	s.Outsourcing = normalizeOutsourcing(s.Kind, in.Outsourcing)
	s.UpdatedAt = now.UTC()
	return nil
}

// Details returns the editable fields.
func (s Stage) Details() StageDetails {
	return StageDetails{
		Name:               s.Name,
		PlannedDurationMin: s.PlannedDurationMin,
		PlannedBySize:      s.PlannedBySize.Clone(),
		ProducedBySize:     s.ProducedBySize.Clone(),
		Deadline:           normalizeTS(s.Deadline),
		Outsourcing:        s.Outsourcing,
	}
}

// Touch bumps UpdatedAt.
func (s *Stage) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Elapsed reports the timer's elapsed duration at now.
func (s Stage) Elapsed(now time.Time) time.Duration {
	return s.Timer.Elapsed(now)
}

// Validate checks the stage's persisted invariants.
func (s Stage) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return ErrInvalidID
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrInvalidName
	}
	if !s.Kind.Valid() {
		return ErrInvalidKind
	}
	if !s.Kind.Allows(s.Status) {
		return fmt.Errorf("%w: status %q is not valid for %s stages", ErrInvalidStatus, s.Status, s.Kind)
	}
	if err := s.Timer.Validate(); err != nil {
		return err
	}
	if _, err := normalizeChecklist(s.Checklist); err != nil {
		return err
	}
	return nil
}

func normalizeOutsourcing(kind StageKind, in *OutsourcingDetails) *OutsourcingDetails {
	if kind != StageKindOutsourced || in == nil {
		return nil
	}
	out := *in
	out.Partner = strings.TrimSpace(out.Partner)
	out.TrackingCode = strings.TrimSpace(out.TrackingCode)
	if out.FreightOutCents < 0 {
		out.FreightOutCents = 0
	}
	if out.FreightBackCents < 0 {
		out.FreightBackCents = 0
	}
	out.ReturnETA = normalizeTS(out.ReturnETA)
	return &out
}

func normalizeTS(in *time.Time) *time.Time {
	if in == nil || in.IsZero() {
		return nil
	}
	ts := in.UTC().Truncate(time.Second)
	return &ts
}
