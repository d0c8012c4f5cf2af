package app

import (
	"context"
	"time"

	"github.com/hylla/shopfloor/internal/domain"
)

// Repository persists catalog, order, and production-run state.
type Repository interface {
	CreateClient(context.Context, domain.Client) error
	UpdateClient(context.Context, domain.Client) error
	GetClient(context.Context, string) (domain.Client, error)
	ListClients(context.Context) ([]domain.Client, error)
	DeleteClient(context.Context, string) error

	CreateProduct(context.Context, domain.Product) error
	UpdateProduct(context.Context, domain.Product) error
	GetProduct(context.Context, string) (domain.Product, error)
	ListProducts(context.Context) ([]domain.Product, error)
	DeleteProduct(context.Context, string) error

	CreateOrder(context.Context, domain.Order) error
	UpdateOrder(context.Context, domain.Order) error
	GetOrder(context.Context, string) (domain.Order, error)
	ListOrders(context.Context, bool) ([]domain.Order, error)
	DeleteOrder(context.Context, string) error

	CreateRun(context.Context, domain.ProductionRun) error
	UpdateRun(context.Context, domain.ProductionRun) error
	GetRun(context.Context, string) (domain.ProductionRun, error)
	ListRuns(context.Context) ([]domain.ProductionRun, error)
	DeleteRun(context.Context, string) error

	// UpdateRunWithEvent writes the run and appends the ledger entry atomically.
	UpdateRunWithEvent(context.Context, domain.ProductionRun, domain.StageEvent) error
	ListStageEvents(context.Context, string, int) ([]domain.StageEvent, error)
}

// Recorder receives production telemetry. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveStageTransition(kind domain.StageKind, from, to domain.StageStatus)
	ObserveTimerSegment(kind domain.StageKind, d time.Duration)
	IncChecklistOp(op string)
	IncRunPublished()
}

// nopRecorder discards telemetry.
type nopRecorder struct{}

func (nopRecorder) ObserveStageTransition(domain.StageKind, domain.StageStatus, domain.StageStatus) {}
func (nopRecorder) ObserveTimerSegment(domain.StageKind, time.Duration) {}
func (nopRecorder) IncChecklistOp(string) {}
func (nopRecorder) IncRunPublished() {}
