package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hylla/shopfloor/internal/domain"
)

func TestSnapshotRoundTripIntoEmptyService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, run := f.seedRun(t, f.clock.now.Add(24*time.Hour))
	stage, err := f.svc.AddStageFromTemplate(ctx, run.ID, run.Items[0].ID, "cutting")
	if err != nil {
		t.Fatalf("AddStageFromTemplate() error = %v", err)
	}
	if _, err := f.svc.Publish(ctx, run.ID); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := f.svc.StartStage(ctx, StageRef{RunID: run.ID, ItemID: run.Items[0].ID, StageID: stage.ID}); err != nil {
		t.Fatalf("StartStage() error = %v", err)
	}
	archivedOrder, _ := f.seedRun(t, f.clock.now.Add(48*time.Hour))
	if _, err := f.svc.ArchiveOrder(ctx, archivedOrder.ID); err != nil {
		t.Fatalf("ArchiveOrder() error = %v", err)
	}

	active, err := f.svc.ExportSnapshot(ctx, false)
	if err != nil {
		t.Fatalf("ExportSnapshot(active) error = %v", err)
	}
	if active.Version != SnapshotVersion {
		t.Fatalf("unexpected version %q", active.Version)
	}
	if len(active.Orders) != 1 || active.Orders[0].ID != order.ID || len(active.Runs) != 1 {
		t.Fatalf("expected archived order excluded, got %d orders %d runs", len(active.Orders), len(active.Runs))
	}

	snap, err := f.svc.ExportSnapshot(ctx, true)
	if err != nil {
		t.Fatalf("ExportSnapshot(all) error = %v", err)
	}
	if len(snap.Clients) != 2 || len(snap.Products) != 2 || len(snap.Orders) != 2 || len(snap.Runs) != 2 {
		t.Fatalf("unexpected snapshot sizes c=%d p=%d o=%d r=%d", len(snap.Clients), len(snap.Products), len(snap.Orders), len(snap.Runs))
	}

	target := newFixture(t)
	if err := target.svc.ImportSnapshot(ctx, snap); err != nil {
		t.Fatalf("ImportSnapshot() error = %v", err)
	}
	again, err := target.svc.ExportSnapshot(ctx, true)
	if err != nil {
		t.Fatalf("ExportSnapshot(target) error = %v", err)
	}
	if diff := cmp.Diff(snap, again); diff != "" {
		t.Fatalf("snapshot round trip mismatch (-want +got):\n%s", diff)
	}

	// Re-importing updates in place.
	snap.Clients[0].Name = "Renamed"
	if err := target.svc.ImportSnapshot(ctx, snap); err != nil {
		t.Fatalf("ImportSnapshot(update) error = %v", err)
	}
	client, err := target.svc.GetClient(ctx, snap.Clients[0].ID)
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if client.Name != "Renamed" {
		t.Fatalf("expected updated client name, got %q", client.Name)
	}
}

func TestSnapshotValidateErrors(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	base := func() Snapshot {
		return Snapshot{
			Version:  SnapshotVersion,
			Clients:  []domain.Client{{ID: "c1", Name: "Client"}},
			Products: []domain.Product{{ID: "p1", Name: "Polo"}},
			Orders: []domain.Order{{
				ID:       "o1",
				ClientID: "c1",
				Status:   domain.OrderInProduction,
				Lines:    []domain.OrderLine{{ID: "l1", ProductID: "p1", QuantityBySize: domain.SizeQuantities{"M": 1}}},
			}},
			Runs: []domain.ProductionRun{{
				ID:      "r1",
				OrderID: "o1",
				Items: []domain.OrderItem{{
					ID:     "i1",
					Stages: []domain.Stage{{ID: "s1", Name: "Cutting", Kind: domain.StageKindInternal, Status: domain.StatusToDo}},
				}},
			}},
		}
	}
	if err := func() error { s := base(); return s.Validate() }(); err != nil {
		t.Fatalf("base snapshot Validate() error = %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{name: "version", mutate: func(s *Snapshot) { s.Version = "other.v9" }},
		{name: "duplicate client", mutate: func(s *Snapshot) { s.Clients = append(s.Clients, s.Clients[0]) }},
		{name: "blank product", mutate: func(s *Snapshot) { s.Products[0].Name = " " }},
		{name: "unknown client", mutate: func(s *Snapshot) { s.Orders[0].ClientID = "c9" }},
		{name: "unknown product", mutate: func(s *Snapshot) { s.Orders[0].Lines[0].ProductID = "p9" }},
		{name: "order status", mutate: func(s *Snapshot) { s.Orders[0].Status = "lost" }},
		{name: "unknown order", mutate: func(s *Snapshot) { s.Runs[0].OrderID = "o9" }},
		{name: "duplicate run", mutate: func(s *Snapshot) { s.Runs = append(s.Runs, s.Runs[0]) }},
		{name: "status outside kind", mutate: func(s *Snapshot) { s.Runs[0].Items[0].Stages[0].Status = domain.StatusAtThirdParty }},
		{name: "running without start", mutate: func(s *Snapshot) { s.Runs[0].Items[0].Stages[0].Timer.Running = true }},
		{name: "stopped with start", mutate: func(s *Snapshot) { s.Runs[0].Items[0].Stages[0].Timer.StartedAt = &now }},
		{name: "published without stages", mutate: func(s *Snapshot) {
			s.Runs[0].Published = true
			s.Runs[0].Items[0].Stages = nil
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := base()
			tc.mutate(&snap)
			if err := snap.Validate(); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestImportSnapshotRejectsInvalidBeforeWriting(t *testing.T) {
	f := newFixture(t)
	err := f.svc.ImportSnapshot(context.Background(), Snapshot{
		Version: SnapshotVersion,
		Clients: []domain.Client{{ID: "c1", Name: "Client"}},
		Runs:    []domain.ProductionRun{{ID: "r1", OrderID: "missing"}},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(f.repo.clients) != 0 {
		t.Fatalf("expected no writes, got %d clients", len(f.repo.clients))
	}
}

func TestExportSnapshotPropagatesError(t *testing.T) {
	f := newFixture(t)
	f.repo.failRuns = errors.New("boom")
	if _, err := f.svc.ExportSnapshot(context.Background(), true); err == nil {
		t.Fatal("expected error")
	}
}
