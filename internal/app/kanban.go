package app

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/hylla/shopfloor/internal/domain"
)

// keySep joins the parts of card and lane keys.
const keySep = "::"

// Card is one (run, item, stage) entry on the board with denormalized display fields.
type Card struct {
	Key            string                `json:"key"`
	LaneKey        string                `json:"lane_key"`
	RunID          string                `json:"run_id"`
	ItemID         string                `json:"item_id"`
	StageID        string                `json:"stage_id"`
	OrderID        string                `json:"order_id"`
	ClientName     string                `json:"client_name"`
	ProductName    string                `json:"product_name"`
	ProductRef     string                `json:"product_ref"`
	ProductType    domain.ProductType    `json:"product_type,omitempty"`
	ColorName      string                `json:"color_name"`
	StageName      string                `json:"stage_name"`
	Kind           domain.StageKind      `json:"kind"`
	Status         domain.StageStatus    `json:"status"`
	StatusLabel    string                `json:"status_label"`
	PlannedBySize  domain.SizeQuantities `json:"planned_by_size"`
	ProducedBySize domain.SizeQuantities `json:"produced_by_size"`
	PlannedTotal   int                   `json:"planned_total"`
	ProducedTotal  int                   `json:"produced_total"`
	SLADeadline    *time.Time            `json:"sla_deadline,omitempty"`
	SLABadge       string                `json:"sla_badge,omitempty"`
	Deadline       *time.Time            `json:"deadline,omitempty"`
	Overdue        bool                  `json:"overdue"`
	Running        bool                  `json:"running"`
	ElapsedMs      int64                 `json:"elapsed_ms"`
	ElapsedClock   string                `json:"elapsed_clock"`
	ChecklistDone  int                   `json:"checklist_done"`
	ChecklistTotal int                   `json:"checklist_total"`
}

// Ref returns the stage address of the card.
func (c Card) Ref() StageRef {
	return StageRef{RunID: c.RunID, ItemID: c.ItemID, StageID: c.StageID}
}

// LaneRef addresses one status column of one (run, item) pair.
type LaneRef struct {
	RunID  string             `json:"run_id"`
	ItemID string             `json:"item_id"`
	Status domain.StageStatus `json:"status"`
}

// Key renders the lane key run::item::status.
func (l LaneRef) Key() string {
	return strings.Join([]string{l.RunID, l.ItemID, string(l.Status)}, keySep)
}

// CardKey renders the card key run::item::stage.
func CardKey(ref StageRef) string {
	return strings.Join([]string{ref.RunID, ref.ItemID, ref.StageID}, keySep)
}

// ParseCardKey parses run::item::stage.
func ParseCardKey(key string) (StageRef, error) {
	parts, err := splitKey(key)
	if err != nil {
		return StageRef{}, err
	}
	return StageRef{RunID: parts[0], ItemID: parts[1], StageID: parts[2]}, nil
}

// ParseLaneKey parses run::item::status.
func ParseLaneKey(key string) (LaneRef, error) {
	parts, err := splitKey(key)
	if err != nil {
		return LaneRef{}, err
	}
	status := domain.StageStatus(parts[2])
	if !status.Valid() {
		return LaneRef{}, fmt.Errorf("%w: unknown status %q", ErrInvalidKey, parts[2])
	}
	return LaneRef{RunID: parts[0], ItemID: parts[1], Status: status}, nil
}

func splitKey(key string) ([]string, error) {
	parts := strings.Split(strings.TrimSpace(key), keySep)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return parts, nil
}

// BuildCards flattens published runs whose order is not archived into cards.
func BuildCards(runs []domain.ProductionRun, archivedOrders map[string]struct{}, now time.Time) []Card {
	cards := make([]Card, 0)
	for _, run := range runs {
		if !run.Published {
			continue
		}
		if _, ok := archivedOrders[run.OrderID]; ok {
			continue
		}
		overdue := run.Overdue(now)
		for _, item := range run.Items {
			for _, stage := range item.Stages {
				ref := StageRef{RunID: run.ID, ItemID: item.ID, StageID: stage.ID}
				elapsed := stage.Elapsed(now)
				done, total := stage.Checklist.Progress()
				cards = append(cards, Card{
					Key:            CardKey(ref),
					LaneKey:        LaneRef{RunID: run.ID, ItemID: item.ID, Status: stage.Status}.Key(),
					RunID:          run.ID,
					ItemID:         item.ID,
					StageID:        stage.ID,
					OrderID:        run.OrderID,
					ClientName:     run.ClientName,
					ProductName:    item.ProductName,
					ProductRef:     item.ProductRef,
					ProductType:    item.ProductType,
					ColorName:      item.ColorName,
					StageName:      stage.Name,
					Kind:           stage.Kind,
					Status:         stage.Status,
					StatusLabel:    stage.Status.Label(),
					PlannedBySize:  stage.PlannedBySize.Clone(),
					ProducedBySize: stage.ProducedBySize.Clone(),
					PlannedTotal:   stage.PlannedBySize.Total(),
					ProducedTotal:  stage.ProducedBySize.Total(),
					SLADeadline:    run.SLADeadline,
					SLABadge:       SLABadge(run.SLADeadline, now),
					Deadline:       stage.Deadline,
					Overdue:        overdue,
					Running:        stage.Timer.Running,
					ElapsedMs:      elapsed.Milliseconds(),
					ElapsedClock:   domain.FormatClock(elapsed),
					ChecklistDone:  done,
					ChecklistTotal: total,
				})
			}
		}
	}
	return cards
}

// CardFilter defines filtering criteria for board queries.
type CardFilter struct {
	Query       string `json:"query"`
	OverdueOnly bool   `json:"overdue_only"`
}

// FilterCards keeps cards whose run id, client, stage, product, or color contains the query,
// ignoring case and accents. OverdueOnly keeps cards whose run SLA deadline has passed.
func FilterCards(cards []Card, filter CardFilter) []Card {
	query := foldText(filter.Query)
	out := make([]Card, 0, len(cards))
	for _, card := range cards {
		if filter.OverdueOnly && !card.Overdue {
			continue
		}
		if query != "" && !containsFolded(query, card.RunID, card.OrderID, card.ClientName, card.StageName, card.ProductName, card.ColorName) {
			continue
		}
		out = append(out, card)
	}
	return out
}

// Lane is one status column of one item.
type Lane struct {
	Key    string             `json:"key"`
	Status domain.StageStatus `json:"status"`
	Label  string             `json:"label"`
	Cards  []Card             `json:"cards"`
}

// ItemLanes groups one item's cards by status column.
type ItemLanes struct {
	RunID       string `json:"run_id"`
	ItemID      string `json:"item_id"`
	OrderID     string `json:"order_id"`
	ClientName  string `json:"client_name"`
	ProductName string `json:"product_name"`
	ColorName   string `json:"color_name"`
	SLABadge    string `json:"sla_badge,omitempty"`
	Overdue     bool   `json:"overdue"`
	Lanes       []Lane `json:"lanes"`
}

// GroupLanes groups cards per (run, item) in first-seen order. Each group exposes the status
// columns of the stage kinds it contains; cards keep insertion order within a lane.
func GroupLanes(cards []Card) []ItemLanes {
	type groupKey struct{ run, item string }
	order := make([]groupKey, 0)
	groups := map[groupKey]*ItemLanes{}
	kinds := map[groupKey][]domain.StageKind{}
	for _, card := range cards {
		key := groupKey{card.RunID, card.ItemID}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
			groups[key] = &ItemLanes{
				RunID:       card.RunID,
				ItemID:      card.ItemID,
				OrderID:     card.OrderID,
				ClientName:  card.ClientName,
				ProductName: card.ProductName,
				ColorName:   card.ColorName,
				SLABadge:    card.SLABadge,
				Overdue:     card.Overdue,
			}
		}
		if !slices.Contains(kinds[key], card.Kind) {
			kinds[key] = append(kinds[key], card.Kind)
		}
	}

	out := make([]ItemLanes, 0, len(order))
	for _, key := range order {
		group := groups[key]
		for _, status := range domain.AllStatuses() {
			if !slices.ContainsFunc(kinds[key], func(k domain.StageKind) bool { return k.Allows(status) }) {
				continue
			}
			lane := Lane{
				Key:    LaneRef{RunID: key.run, ItemID: key.item, Status: status}.Key(),
				Status: status,
				Label:  status.Label(),
				Cards:  []Card{},
			}
			for _, card := range cards {
				if card.RunID == key.run && card.ItemID == key.item && card.Status == status {
					lane.Cards = append(lane.Cards, card)
				}
			}
			group.Lanes = append(group.Lanes, lane)
		}
		out = append(out, *group)
	}
	return out
}

// SLABadge renders days to the deadline as D-n, or days past it as D+n.
func SLABadge(deadline *time.Time, now time.Time) string {
	if deadline == nil {
		return ""
	}
	days := int(math.Ceil(deadline.Sub(now).Hours() / 24))
	if days >= 0 {
		return fmt.Sprintf("D-%d", days)
	}
	return fmt.Sprintf("D+%d", -days)
}

// BoardView is the board query result.
type BoardView struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Cards       []Card      `json:"cards"`
	Groups      []ItemLanes `json:"groups"`
}

// Cards returns the filtered board cards, recomputed from current state.
func (s *Service) Cards(ctx context.Context, filter CardFilter) ([]Card, error) {
	runs, err := s.repo.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	archived, err := s.archivedOrderIDs(ctx)
	if err != nil {
		return nil, err
	}
	return FilterCards(BuildCards(runs, archived, s.clock()), filter), nil
}

// Board returns filtered cards together with their lane grouping.
func (s *Service) Board(ctx context.Context, filter CardFilter) (BoardView, error) {
	cards, err := s.Cards(ctx, filter)
	if err != nil {
		return BoardView{}, err
	}
	return BoardView{
		GeneratedAt: s.clock().UTC(),
		Cards:       cards,
		Groups:      GroupLanes(cards),
	}, nil
}

// MoveCard sets a stage's status from a board drop. The target lane must belong to the
// card's own (run, item) pair, otherwise ErrCrossRunMove is returned and nothing changes.
// Cards of draft runs or archived orders return ErrInvalidState.
func (s *Service) MoveCard(ctx context.Context, card StageRef, target LaneRef) (domain.Stage, error) {
	if card.RunID != target.RunID || card.ItemID != target.ItemID {
		return domain.Stage{}, fmt.Errorf("%w: card %s -> lane %s", domain.ErrCrossRunMove, CardKey(card), target.Key())
	}
	return s.mutateStage(ctx, card, func(stage *domain.Stage, now time.Time) (stageChange, error) {
		segment, err := stage.SetStatus(target.Status, now)
		if err != nil {
			return stageChange{}, err
		}
		return stageChange{op: domain.StageOpMove, segment: segment, metadata: segmentMetadata(segment)}, nil
	})
}

// MoveCardByKey parses board keys and delegates to MoveCard.
func (s *Service) MoveCardByKey(ctx context.Context, cardKey, laneKey string) (domain.Stage, error) {
	card, err := ParseCardKey(cardKey)
	if err != nil {
		return domain.Stage{}, err
	}
	lane, err := ParseLaneKey(laneKey)
	if err != nil {
		return domain.Stage{}, err
	}
	return s.MoveCard(ctx, card, lane)
}
