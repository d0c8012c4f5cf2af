package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

var _ ProductionService = (*AppServiceAdapter)(nil)

func (a *AppServiceAdapter) ListClients(ctx context.Context, query string) ([]domain.Client, error) {
	return a.service.ListClients(ctx, query)
}

func (a *AppServiceAdapter) GetClient(ctx context.Context, id string) (domain.Client, error) {
	return a.service.GetClient(ctx, id)
}

func (a *AppServiceAdapter) CreateClient(ctx context.Context, in ClientRequest) (domain.Client, error) {
	return a.service.CreateClient(ctx, in.input())
}

func (a *AppServiceAdapter) UpdateClient(ctx context.Context, id string, in ClientRequest) (domain.Client, error) {
	return a.service.UpdateClient(ctx, id, in.input())
}

func (a *AppServiceAdapter) DeleteClient(ctx context.Context, id string) error {
	return a.service.DeleteClient(ctx, id)
}

func (a *AppServiceAdapter) ListProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return a.service.ListProducts(ctx, query)
}

func (a *AppServiceAdapter) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return a.service.GetProduct(ctx, id)
}

func (a *AppServiceAdapter) CreateProduct(ctx context.Context, in ProductRequest) (domain.Product, error) {
	return a.service.CreateProduct(ctx, in.input())
}

func (a *AppServiceAdapter) UpdateProduct(ctx context.Context, id string, in ProductRequest) (domain.Product, error) {
	return a.service.UpdateProduct(ctx, id, in.input())
}

func (a *AppServiceAdapter) DeleteProduct(ctx context.Context, id string) error {
	return a.service.DeleteProduct(ctx, id)
}

func (a *AppServiceAdapter) ListOrders(ctx context.Context, includeArchived bool) ([]domain.Order, error) {
	return a.service.ListOrders(ctx, includeArchived)
}

func (a *AppServiceAdapter) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return a.service.GetOrder(ctx, id)
}

func (a *AppServiceAdapter) CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error) {
	return a.service.CreateOrder(ctx, in)
}

// SetOrderStatus parses a raw status before delegating.
func (a *AppServiceAdapter) SetOrderStatus(ctx context.Context, id, status string) (domain.Order, error) {
	parsed := domain.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !parsed.Valid() {
		return domain.Order{}, fmt.Errorf("%w: order status %q", ErrInvalidRequest, status)
	}
	return a.service.SetOrderStatus(ctx, id, parsed)
}

func (a *AppServiceAdapter) ArchiveOrder(ctx context.Context, id string) (domain.Order, error) {
	return a.service.ArchiveOrder(ctx, id)
}

func (a *AppServiceAdapter) RestoreOrder(ctx context.Context, id string) (domain.Order, error) {
	return a.service.RestoreOrder(ctx, id)
}

func (a *AppServiceAdapter) DeleteOrder(ctx context.Context, id string) error {
	return a.service.DeleteOrder(ctx, id)
}

func (a *AppServiceAdapter) OrderReport(ctx context.Context, id string) (app.OrderReport, error) {
	return a.service.OrderReport(ctx, id)
}

func (a *AppServiceAdapter) ListRuns(ctx context.Context, filter app.RunFilter) ([]domain.ProductionRun, error) {
	return a.service.ListRuns(ctx, filter)
}

func (a *AppServiceAdapter) GetRun(ctx context.Context, id string) (domain.ProductionRun, error) {
	return a.service.GetRun(ctx, id)
}

func (a *AppServiceAdapter) CreateRunFromOrder(ctx context.Context, orderID string) (domain.ProductionRun, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.ProductionRun{}, fmt.Errorf("%w: order_id is required", ErrInvalidRequest)
	}
	return a.service.CreateRunFromOrder(ctx, orderID)
}

func (a *AppServiceAdapter) PublishRun(ctx context.Context, id string) (domain.ProductionRun, error) {
	return a.service.Publish(ctx, id)
}

func (a *AppServiceAdapter) UnpublishRun(ctx context.Context, id string) (domain.ProductionRun, error) {
	return a.service.Unpublish(ctx, id)
}

func (a *AppServiceAdapter) DeleteRun(ctx context.Context, id string) error {
	return a.service.DeleteRun(ctx, id)
}

// AddStage creates a stage from a template when one is named, otherwise from explicit fields.
func (a *AppServiceAdapter) AddStage(ctx context.Context, in AddStageRequest) (domain.Stage, error) {
	if template := strings.TrimSpace(in.Template); template != "" {
		return a.service.AddStageFromTemplate(ctx, in.RunID, in.ItemID, template)
	}
	return a.service.AddStage(ctx, in.AddStageInput)
}

// UpdateStage merges the request onto the stage's current details.
func (a *AppServiceAdapter) UpdateStage(ctx context.Context, ref app.StageRef, in StageDetailsRequest) (domain.Stage, error) {
	run, err := a.service.GetRun(ctx, ref.RunID)
	if err != nil {
		return domain.Stage{}, err
	}
	stage, err := run.Stage(ref.ItemID, ref.StageID)
	if err != nil {
		return domain.Stage{}, err
	}
	details := stage.Details()
	if in.Name != nil {
		details.Name = *in.Name
	}
	if in.PlannedDurationMin != nil {
		details.PlannedDurationMin = *in.PlannedDurationMin
	}
	if in.PlannedBySize != nil {
		details.PlannedBySize = in.PlannedBySize
	}
	if in.ProducedBySize != nil {
		details.ProducedBySize = in.ProducedBySize
	}
	switch {
	case in.ClearDeadline:
		details.Deadline = nil
	case in.Deadline != nil:
		details.Deadline = in.Deadline
	}
	if in.Outsourcing != nil {
		details.Outsourcing = in.Outsourcing
	}
	return a.service.UpdateStage(ctx, ref, details)
}

func (a *AppServiceAdapter) RemoveStage(ctx context.Context, ref app.StageRef) (domain.ProductionRun, error) {
	return a.service.RemoveStage(ctx, ref)
}

// StageCommand dispatches one timer or status command by name.
func (a *AppServiceAdapter) StageCommand(ctx context.Context, ref app.StageRef, command string) (domain.Stage, error) {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case StageCommandStart:
		return a.service.StartStage(ctx, ref)
	case StageCommandPause:
		return a.service.PauseStage(ctx, ref)
	case StageCommandReset:
		return a.service.ResetStageTimer(ctx, ref)
	case StageCommandComplete:
		return a.service.CompleteStage(ctx, ref)
	case StageCommandAdvance:
		return a.service.AdvanceStage(ctx, ref)
	default:
		return domain.Stage{}, fmt.Errorf("%w: unknown stage command %q", ErrInvalidRequest, command)
	}
}

// ChecklistCommand dispatches one checklist operation by name.
func (a *AppServiceAdapter) ChecklistCommand(ctx context.Context, in ChecklistRequest) (domain.Stage, error) {
	switch strings.ToLower(strings.TrimSpace(in.Op)) {
	case ChecklistAdd:
		return a.service.AddChecklistItem(ctx, in.Stage, in.Text)
	case ChecklistToggle:
		return a.service.ToggleChecklistItem(ctx, in.Stage, in.ItemID)
	case ChecklistRename:
		return a.service.RenameChecklistItem(ctx, in.Stage, in.ItemID, in.Text)
	case ChecklistRemove:
		return a.service.RemoveChecklistItem(ctx, in.Stage, in.ItemID)
	case ChecklistMarkAll:
		return a.service.MarkAllChecklist(ctx, in.Stage, in.Done)
	default:
		return domain.Stage{}, fmt.Errorf("%w: unknown checklist op %q", ErrInvalidRequest, in.Op)
	}
}

func (a *AppServiceAdapter) ListStageEvents(ctx context.Context, runID string, limit int) ([]domain.StageEvent, error) {
	return a.service.ListStageEvents(ctx, runID, limit)
}

func (a *AppServiceAdapter) StageTemplates() []app.StageTemplate {
	return a.service.StageTemplates()
}

func (a *AppServiceAdapter) Board(ctx context.Context, filter app.CardFilter) (app.BoardView, error) {
	return a.service.Board(ctx, filter)
}

func (a *AppServiceAdapter) MoveCard(ctx context.Context, in MoveCardRequest) (domain.Stage, error) {
	if strings.TrimSpace(in.CardKey) == "" || strings.TrimSpace(in.LaneKey) == "" {
		return domain.Stage{}, fmt.Errorf("%w: card_key and lane_key are required", ErrInvalidRequest)
	}
	return a.service.MoveCardByKey(ctx, in.CardKey, in.LaneKey)
}

func (a *AppServiceAdapter) Dashboard(ctx context.Context) (app.Dashboard, error) {
	return a.service.Dashboard(ctx)
}

func (a *AppServiceAdapter) ExportSnapshot(ctx context.Context, includeArchived bool) (app.Snapshot, error) {
	return a.service.ExportSnapshot(ctx, includeArchived)
}

func (a *AppServiceAdapter) ImportSnapshot(ctx context.Context, snap app.Snapshot) error {
	return a.service.ImportSnapshot(ctx, snap)
}

func (in ClientRequest) input() domain.ClientInput {
	return domain.ClientInput{
		Name:        in.Name,
		Document:    in.Document,
		ContactName: in.ContactName,
		Email:       in.Email,
		Phone:       in.Phone,
		Address:     in.Address,
	}
}

func (in ProductRequest) input() domain.ProductInput {
	return domain.ProductInput{
		Name:   in.Name,
		Ref:    in.Ref,
		Type:   domain.ProductType(strings.ToLower(strings.TrimSpace(in.Type))),
		Sizes:  in.Sizes,
		Colors: in.Colors,
	}
}
