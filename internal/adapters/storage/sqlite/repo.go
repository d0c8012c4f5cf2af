package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/shopfloor/internal/app"
	"github.com/hylla/shopfloor/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, "file::memory:?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			document TEXT NOT NULL DEFAULT '',
			contact_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			address_json TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			ref TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'uniform',
			sizes_json TEXT NOT NULL DEFAULT '[]',
			colors_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL DEFAULT '',
			client_name TEXT NOT NULL,
			sla_deadline TEXT,
			status TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			lines_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			archived_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS production_runs (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL,
			client_name TEXT NOT NULL DEFAULT '',
			sla_deadline TEXT,
			published INTEGER NOT NULL DEFAULT 0,
			published_at TEXT,
			items_json TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stage_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			item_id TEXT NOT NULL DEFAULT '',
			stage_id TEXT NOT NULL DEFAULT '',
			operation TEXT NOT NULL,
			from_status TEXT NOT NULL DEFAULT '',
			to_status TEXT NOT NULL DEFAULT '',
			metadata_json TEXT NOT NULL DEFAULT '{}',
			occurred_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_production_runs_order ON production_runs(order_id);`,
		`CREATE INDEX IF NOT EXISTS idx_stage_events_run_occurred ON stage_events(run_id, occurred_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// CreateClient creates client.
func (r *Repository) CreateClient(ctx context.Context, c domain.Client) error {
	addressJSON, err := json.Marshal(c.Address)
	if err != nil {
		return fmt.Errorf("encode client address: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO clients(id, name, document, contact_name, email, phone, address_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Document, c.ContactName, c.Email, c.Phone, string(addressJSON), ts(c.CreatedAt), ts(c.UpdatedAt))
	return err
}

// UpdateClient updates state for the requested operation.
func (r *Repository) UpdateClient(ctx context.Context, c domain.Client) error {
	addressJSON, err := json.Marshal(c.Address)
	if err != nil {
		return fmt.Errorf("encode client address: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE clients
		SET name = ?, document = ?, contact_name = ?, email = ?, phone = ?, address_json = ?, updated_at = ?
		WHERE id = ?
	`, c.Name, c.Document, c.ContactName, c.Email, c.Phone, string(addressJSON), ts(c.UpdatedAt), c.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetClient returns client.
func (r *Repository) GetClient(ctx context.Context, id string) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, document, contact_name, email, phone, address_json, created_at, updated_at
		FROM clients
		WHERE id = ?
	`, id)
	return scanClient(row)
}

// ListClients lists clients.
func (r *Repository) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, document, contact_name, email, phone, address_json, created_at, updated_at
		FROM clients
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteClient deletes client.
func (r *Repository) DeleteClient(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// CreateProduct creates product.
func (r *Repository) CreateProduct(ctx context.Context, p domain.Product) error {
	sizesJSON, colorsJSON, err := encodeProductLabels(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO products(id, name, ref, type, sizes_json, colors_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Ref, string(p.Type), sizesJSON, colorsJSON, ts(p.CreatedAt), ts(p.UpdatedAt))
	return err
}

// UpdateProduct updates state for the requested operation.
func (r *Repository) UpdateProduct(ctx context.Context, p domain.Product) error {
	sizesJSON, colorsJSON, err := encodeProductLabels(p)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = ?, ref = ?, type = ?, sizes_json = ?, colors_json = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Ref, string(p.Type), sizesJSON, colorsJSON, ts(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetProduct returns product.
func (r *Repository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, ref, type, sizes_json, colors_json, created_at, updated_at
		FROM products
		WHERE id = ?
	`, id)
	return scanProduct(row)
}

// ListProducts lists products.
func (r *Repository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, ref, type, sizes_json, colors_json, created_at, updated_at
		FROM products
		ORDER BY name ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProduct deletes product.
func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// CreateOrder creates order.
func (r *Repository) CreateOrder(ctx context.Context, o domain.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders(id, client_id, client_name, sla_deadline, status, notes, lines_json, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.ClientID, o.ClientName, nullableTS(o.SLADeadline), string(o.Status), o.Notes, string(linesJSON), ts(o.CreatedAt), ts(o.UpdatedAt), nullableTS(o.ArchivedAt))
	return err
}

// UpdateOrder updates state for the requested operation.
func (r *Repository) UpdateOrder(ctx context.Context, o domain.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET client_id = ?, client_name = ?, sla_deadline = ?, status = ?, notes = ?, lines_json = ?, updated_at = ?, archived_at = ?
		WHERE id = ?
	`, o.ClientID, o.ClientName, nullableTS(o.SLADeadline), string(o.Status), o.Notes, string(linesJSON), ts(o.UpdatedAt), nullableTS(o.ArchivedAt), o.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetOrder returns order.
func (r *Repository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, client_name, sla_deadline, status, notes, lines_json, created_at, updated_at, archived_at
		FROM orders
		WHERE id = ?
	`, id)
	return scanOrder(row)
}

// ListOrders lists orders.
func (r *Repository) ListOrders(ctx context.Context, includeArchived bool) ([]domain.Order, error) {
	query := `
		SELECT id, client_id, client_name, sla_deadline, status, notes, lines_json, created_at, updated_at, archived_at
		FROM orders
	`
	if !includeArchived {
		query += ` WHERE archived_at IS NULL`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeleteOrder deletes order.
func (r *Repository) DeleteOrder(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// CreateRun creates a production run with its items and stages.
func (r *Repository) CreateRun(ctx context.Context, run domain.ProductionRun) error {
	itemsJSON, err := json.Marshal(run.Items)
	if err != nil {
		return fmt.Errorf("encode run items: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO production_runs(id, order_id, client_name, sla_deadline, published, published_at, items_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.OrderID, run.ClientName, nullableTS(run.SLADeadline), boolInt(run.Published), nullableTS(run.PublishedAt), string(itemsJSON), ts(run.CreatedAt), ts(run.UpdatedAt))
	return err
}

// UpdateRun writes the whole run back.
func (r *Repository) UpdateRun(ctx context.Context, run domain.ProductionRun) error {
	return updateRun(ctx, r.db, run)
}

// UpdateRunWithEvent writes the run and its ledger record in one transaction.
func (r *Repository) UpdateRunWithEvent(ctx context.Context, run domain.ProductionRun, event domain.StageEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = updateRun(ctx, tx, run); err != nil {
		return err
	}
	if err = insertStageEvent(ctx, tx, event); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

func updateRun(ctx context.Context, execer execerContext, run domain.ProductionRun) error {
	itemsJSON, err := json.Marshal(run.Items)
	if err != nil {
		return fmt.Errorf("encode run items: %w", err)
	}
	res, err := execer.ExecContext(ctx, `
		UPDATE production_runs
		SET order_id = ?, client_name = ?, sla_deadline = ?, published = ?, published_at = ?, items_json = ?, updated_at = ?
		WHERE id = ?
	`, run.OrderID, run.ClientName, nullableTS(run.SLADeadline), boolInt(run.Published), nullableTS(run.PublishedAt), string(itemsJSON), ts(run.UpdatedAt), run.ID)
	if err != nil {
		return err
	}
	return translateNoRows(res)
}

// GetRun returns run.
func (r *Repository) GetRun(ctx context.Context, id string) (domain.ProductionRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, client_name, sla_deadline, published, published_at, items_json, created_at, updated_at
		FROM production_runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns lists runs.
func (r *Repository) ListRuns(ctx context.Context) ([]domain.ProductionRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, client_name, sla_deadline, published, published_at, items_json, created_at, updated_at
		FROM production_runs
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ProductionRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// DeleteRun deletes a run and its activity ledger in one transaction.
func (r *Repository) DeleteRun(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM production_runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = translateNoRows(res); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM stage_events WHERE run_id = ?`, id); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// execerContext is satisfied by both *sql.DB and *sql.Tx.
type execerContext interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// insertStageEvent inserts one activity ledger record.
func insertStageEvent(ctx context.Context, execer execerContext, event domain.StageEvent) error {
	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode stage event metadata: %w", err)
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO stage_events(run_id, item_id, stage_id, operation, from_status, to_status, metadata_json, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.RunID,
		event.ItemID,
		event.StageID,
		string(event.Operation),
		string(event.FromStatus),
		string(event.ToStatus),
		string(metadataJSON),
		ts(normalizeEventTS(event.OccurredAt)),
	)
	if err != nil {
		return fmt.Errorf("insert stage event: %w", err)
	}
	return nil
}

// ListStageEvents lists a run's activity, newest first.
func (r *Repository) ListStageEvents(ctx context.Context, runID string, limit int) ([]domain.StageEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, item_id, stage_id, operation, from_status, to_status, metadata_json, occurred_at
		FROM stage_events
		WHERE run_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StageEvent, 0)
	for rows.Next() {
		var (
			event       domain.StageEvent
			opRaw       string
			fromRaw     string
			toRaw       string
			metadataRaw string
			occurredRaw string
		)
		if err := rows.Scan(&event.ID, &event.RunID, &event.ItemID, &event.StageID, &opRaw, &fromRaw, &toRaw, &metadataRaw, &occurredRaw); err != nil {
			return nil, err
		}
		event.Operation = domain.StageOperation(opRaw)
		event.FromStatus = domain.StageStatus(fromRaw)
		event.ToStatus = domain.StageStatus(toRaw)
		event.OccurredAt = parseTS(occurredRaw)
		if err := decodeJSONColumn(metadataRaw, "{}", &event.Metadata); err != nil {
			return nil, fmt.Errorf("decode stage_events.metadata_json: %w", err)
		}
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// normalizeEventTS defaults a zero event time to now.
func normalizeEventTS(in time.Time) time.Time {
	if in.IsZero() {
		return time.Now().UTC()
	}
	return in.UTC()
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanClient handles scan client.
func scanClient(s scanner) (domain.Client, error) {
	var (
		c          domain.Client
		addressRaw string
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Document, &c.ContactName, &c.Email, &c.Phone, &addressRaw, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Client{}, app.ErrNotFound
		}
		return domain.Client{}, err
	}
	if err := decodeJSONColumn(addressRaw, "{}", &c.Address); err != nil {
		return domain.Client{}, fmt.Errorf("decode clients.address_json: %w", err)
	}
	c.CreatedAt = parseTS(createdRaw)
	c.UpdatedAt = parseTS(updatedRaw)
	return c, nil
}

// scanProduct handles scan product.
func scanProduct(s scanner) (domain.Product, error) {
	var (
		p          domain.Product
		typeRaw    string
		sizesRaw   string
		colorsRaw  string
		createdRaw string
		updatedRaw string
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Ref, &typeRaw, &sizesRaw, &colorsRaw, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, app.ErrNotFound
		}
		return domain.Product{}, err
	}
	p.Type = domain.ProductType(typeRaw)
	if err := decodeJSONColumn(sizesRaw, "[]", &p.Sizes); err != nil {
		return domain.Product{}, fmt.Errorf("decode products.sizes_json: %w", err)
	}
	if err := decodeJSONColumn(colorsRaw, "[]", &p.Colors); err != nil {
		return domain.Product{}, fmt.Errorf("decode products.colors_json: %w", err)
	}
	if len(p.Sizes) == 0 {
		p.Sizes = nil
	}
	if len(p.Colors) == 0 {
		p.Colors = nil
	}
	p.CreatedAt = parseTS(createdRaw)
	p.UpdatedAt = parseTS(updatedRaw)
	return p, nil
}

// scanOrder handles scan order.
func scanOrder(s scanner) (domain.Order, error) {
	var (
		o          domain.Order
		slaRaw     sql.NullString
		statusRaw  string
		linesRaw   string
		createdRaw string
		updatedRaw string
		archived   sql.NullString
	)
	if err := s.Scan(&o.ID, &o.ClientID, &o.ClientName, &slaRaw, &statusRaw, &o.Notes, &linesRaw, &createdRaw, &updatedRaw, &archived); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, app.ErrNotFound
		}
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(statusRaw)
	if err := decodeJSONColumn(linesRaw, "[]", &o.Lines); err != nil {
		return domain.Order{}, fmt.Errorf("decode orders.lines_json: %w", err)
	}
	o.SLADeadline = parseNullTS(slaRaw)
	o.CreatedAt = parseTS(createdRaw)
	o.UpdatedAt = parseTS(updatedRaw)
	o.ArchivedAt = parseNullTS(archived)
	return o, nil
}

// scanRun handles scan run.
func scanRun(s scanner) (domain.ProductionRun, error) {
	var (
		run          domain.ProductionRun
		slaRaw       sql.NullString
		published    int
		publishedRaw sql.NullString
		itemsRaw     string
		createdRaw   string
		updatedRaw   string
	)
	if err := s.Scan(&run.ID, &run.OrderID, &run.ClientName, &slaRaw, &published, &publishedRaw, &itemsRaw, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductionRun{}, app.ErrNotFound
		}
		return domain.ProductionRun{}, err
	}
	if err := decodeJSONColumn(itemsRaw, "[]", &run.Items); err != nil {
		return domain.ProductionRun{}, fmt.Errorf("decode production_runs.items_json: %w", err)
	}
	run.SLADeadline = parseNullTS(slaRaw)
	run.Published = published != 0
	run.PublishedAt = parseNullTS(publishedRaw)
	run.CreatedAt = parseTS(createdRaw)
	run.UpdatedAt = parseTS(updatedRaw)
	return run, nil
}

// encodeProductLabels encodes product size and color lists.
func encodeProductLabels(p domain.Product) (string, string, error) {
	sizes := p.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	colors := p.Colors
	if colors == nil {
		colors = []string{}
	}
	sizesJSON, err := json.Marshal(sizes)
	if err != nil {
		return "", "", fmt.Errorf("encode product sizes: %w", err)
	}
	colorsJSON, err := json.Marshal(colors)
	if err != nil {
		return "", "", fmt.Errorf("encode product colors: %w", err)
	}
	return string(sizesJSON), string(colorsJSON), nil
}

// decodeJSONColumn decodes raw, treating blank values as fallback.
func decodeJSONColumn(raw, fallback string, dst any) error {
	if strings.TrimSpace(raw) == "" {
		raw = fallback
	}
	return json.Unmarshal([]byte(raw), dst)
}

// translateNoRows handles translate no rows.
func translateNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return app.ErrNotFound
	}
	return nil
}

// boolInt stores a bool as an INTEGER column value.
func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// nullableTS handles nullable ts.
func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// parseNullTS parses input into a normalized form.
func parseNullTS(v sql.NullString) *time.Time {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return nil
	}
	ts := parseTS(v.String)
	return &ts
}
