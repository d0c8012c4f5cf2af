// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"

	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/auth"
	"github.com/hylla/shopfloor/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrForbidden reports an authenticated caller without the needed permission.
var ErrForbidden = errors.New("forbidden")

// Stage commands accepted by StageCommand.
const (
	StageCommandStart    = "start"
	StageCommandPause    = "pause"
	StageCommandReset    = "reset"
	StageCommandComplete = "complete"
	StageCommandAdvance  = "advance"
)

// StageCommands returns every accepted stage command in canonical order.
func StageCommands() []string {
	return []string{StageCommandStart, StageCommandPause, StageCommandReset, StageCommandComplete, StageCommandAdvance}
}

// Checklist operations accepted by ChecklistCommand.
const (
	ChecklistAdd     = "add"
	ChecklistToggle  = "toggle"
	ChecklistRename  = "rename"
	ChecklistRemove  = "remove"
	ChecklistMarkAll = "mark_all"
)

// ClientRequest carries client fields from a transport payload.
type ClientRequest struct {
	Name        string         `json:"name"`
	Document    string         `json:"document"`
	ContactName string         `json:"contact_name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Address     domain.Address `json:"address"`
}

// ProductRequest carries product fields from a transport payload.
type ProductRequest struct {
	Name   string   `json:"name"`
	Ref    string   `json:"ref"`
	Type   string   `json:"type"`
	Sizes  []string `json:"sizes"`
	Colors []string `json:"colors"`
}

// AddStageRequest adds a stage either from a template or from explicit fields.
type AddStageRequest struct {
	Template string `json:"template"`
	app.AddStageInput
}

// StageDetailsRequest carries editable stage fields. Nil fields keep the current value.
type StageDetailsRequest struct {
	Name               *string                    `json:"name"`
	PlannedDurationMin *int                       `json:"planned_duration_min"`
	PlannedBySize      domain.SizeQuantities      `json:"planned_by_size"`
	ProducedBySize     domain.SizeQuantities      `json:"produced_by_size"`
	Deadline           *time.Time                 `json:"deadline"`
	ClearDeadline      bool                       `json:"clear_deadline"`
	Outsourcing        *domain.OutsourcingDetails `json:"outsourcing"`
}

// ChecklistRequest carries one checklist operation.
type ChecklistRequest struct {
	Stage  app.StageRef `json:"stage"`
	Op     string       `json:"op"`
	ItemID string       `json:"item_id"`
	Text   string       `json:"text"`
	Done   bool         `json:"done"`
}

// MoveCardRequest moves one board card into a lane.
type MoveCardRequest struct {
	CardKey string `json:"card_key"`
	LaneKey string `json:"lane_key"`
}

// CatalogService manages clients and products.
type CatalogService interface {
	ListClients(context.Context, string) ([]domain.Client, error)
	GetClient(context.Context, string) (domain.Client, error)
	CreateClient(context.Context, ClientRequest) (domain.Client, error)
	UpdateClient(context.Context, string, ClientRequest) (domain.Client, error)
	DeleteClient(context.Context, string) error
	ListProducts(context.Context, string) ([]domain.Product, error)
	GetProduct(context.Context, string) (domain.Product, error)
	CreateProduct(context.Context, ProductRequest) (domain.Product, error)
	UpdateProduct(context.Context, string, ProductRequest) (domain.Product, error)
	DeleteProduct(context.Context, string) error
}

// OrderService manages orders and their reports.
type OrderService interface {
	ListOrders(context.Context, bool) ([]domain.Order, error)
	GetOrder(context.Context, string) (domain.Order, error)
	CreateOrder(context.Context, app.CreateOrderInput) (domain.Order, error)
	SetOrderStatus(context.Context, string, string) (domain.Order, error)
	ArchiveOrder(context.Context, string) (domain.Order, error)
	RestoreOrder(context.Context, string) (domain.Order, error)
	DeleteOrder(context.Context, string) error
	OrderReport(context.Context, string) (app.OrderReport, error)
}

// RunService manages production runs, stages, and checklists.
type RunService interface {
	ListRuns(context.Context, app.RunFilter) ([]domain.ProductionRun, error)
	GetRun(context.Context, string) (domain.ProductionRun, error)
	CreateRunFromOrder(context.Context, string) (domain.ProductionRun, error)
	PublishRun(context.Context, string) (domain.ProductionRun, error)
	UnpublishRun(context.Context, string) (domain.ProductionRun, error)
	DeleteRun(context.Context, string) error
	AddStage(context.Context, AddStageRequest) (domain.Stage, error)
	UpdateStage(context.Context, app.StageRef, StageDetailsRequest) (domain.Stage, error)
	RemoveStage(context.Context, app.StageRef) (domain.ProductionRun, error)
	StageCommand(context.Context, app.StageRef, string) (domain.Stage, error)
	ChecklistCommand(context.Context, ChecklistRequest) (domain.Stage, error)
	ListStageEvents(context.Context, string, int) ([]domain.StageEvent, error)
	StageTemplates() []app.StageTemplate
}

// BoardService serves the kanban projection and dashboard.
type BoardService interface {
	Board(context.Context, app.CardFilter) (app.BoardView, error)
	MoveCard(context.Context, MoveCardRequest) (domain.Stage, error)
	Dashboard(context.Context) (app.Dashboard, error)
}

// SnapshotService exports and imports full snapshots.
type SnapshotService interface {
	ExportSnapshot(context.Context, bool) (app.Snapshot, error)
	ImportSnapshot(context.Context, app.Snapshot) error
}

// ProductionService is the full production surface used by the REST API.
type ProductionService interface {
	CatalogService
	OrderService
	RunService
	BoardService
	SnapshotService
}

// AuthService authenticates callers and manages operator accounts.
type AuthService interface {
	Login(context.Context, string, string) (auth.Session, error)
	Authenticate(context.Context, string) (domain.User, error)
	TokenTTL() time.Duration
	ListUsers(context.Context, string) ([]domain.User, error)
	GetUser(context.Context, string) (domain.User, error)
	CreateUser(context.Context, auth.CreateUserInput) (domain.User, error)
	UpdateUser(context.Context, string, auth.UserPatch) (domain.User, error)
	DeleteUser(context.Context, string) error
}
