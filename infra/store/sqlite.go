package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mverdeau/geodispatch/core/model"
	"github.com/mverdeau/geodispatch/core/storage"
)

// SQLiteStore persists deliveries and reports to a SQLite database. Rows keep
// the full record as JSON next to the columns used for filtering, so schema
// changes in the model do not require migrations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS deliveries (
        id TEXT PRIMARY KEY,
        vehicle_id TEXT,
        status TEXT,
        created_at INTEGER,
        record TEXT
    );
    CREATE TABLE IF NOT EXISTS reports (
        id TEXT PRIMARY KEY,
        delivery_id TEXT,
        created_at INTEGER,
        record TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces the delivery row.
func (s *SQLiteStore) Save(ctx context.Context, d model.Delivery) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO deliveries (id, vehicle_id, status, created_at, record) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.VehicleID, d.Status.String(), d.CreatedAt.UnixMilli(), string(b))
	return err
}

// Load returns the delivery with the given id.
func (s *SQLiteStore) Load(ctx context.Context, id string) (model.Delivery, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM deliveries WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Delivery{}, fmt.Errorf("delivery %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return model.Delivery{}, err
	}
	var d model.Delivery
	if err := json.Unmarshal([]byte(data), &d); err != nil {
		return model.Delivery{}, fmt.Errorf("unmarshal delivery: %w", err)
	}
	return d, nil
}

// List returns all deliveries, most recent first.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM deliveries ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Delivery
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var d model.Delivery
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			return nil, fmt.Errorf("unmarshal delivery: %w", err)
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// ReportStore exposes the reports table as a storage.ReportStore.
type ReportStore struct {
	s *SQLiteStore
}

// Reports returns the report view of the store.
func (s *SQLiteStore) Reports() *ReportStore { return &ReportStore{s: s} }

// Save inserts the report row.
func (r *ReportStore) Save(ctx context.Context, rep model.Report) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	_, err = r.s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reports (id, delivery_id, created_at, record) VALUES (?, ?, ?, ?)`,
		rep.ID, rep.DeliveryID, rep.CreatedAt.UnixMilli(), string(b))
	return err
}

// List returns all reports in insertion order.
func (r *ReportStore) List(ctx context.Context) ([]model.Report, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT record FROM reports ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Report
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rep model.Report
		if err := json.Unmarshal([]byte(data), &rep); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		res = append(res, rep)
	}
	return res, rows.Err()
}
