package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"quicksplit/internal/core"

	_ "modernc.org/sqlite"
)

const currentBillKey = "current_bill_id"

type SQLiteRepository struct {
	db *sql.DB
}

// Ensure interface conformance
var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateBill stores a new bill snapshot. The raw fields are serialized as
// one JSON document; name and created_at are duplicated into columns so
// listings can sort without deserializing.
func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bill: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO bills (id, name, created_at, data) VALUES (?, ?, ?, ?)`,
		b.ID, b.Name, b.CreatedAt, string(data))
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill saved to SQLite",
		"id", b.ID,
		"name", b.Name,
		"items", len(b.Items),
		"participants", len(b.Participants))
	return nil
}

func (r *SQLiteRepository) GetBill(ctx context.Context, id string) (core.Bill, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM bills WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, core.ErrBillNotFound
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("query bill: %w", err)
	}

	var b core.Bill
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return core.Bill{}, fmt.Errorf("unmarshal bill: %w", err)
	}
	return b, nil
}

// UpdateBill replaces the stored snapshot wholesale; the caller holds the
// current snapshot and every mutation produced a new one.
func (r *SQLiteRepository) UpdateBill(ctx context.Context, b core.Bill) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bill: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE bills SET name = ?, data = ? WHERE id = ?`,
		b.Name, string(data), b.ID)
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrBillNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrBillNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT data FROM bills ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		var b core.Bill
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return nil, fmt.Errorf("unmarshal bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (r *SQLiteRepository) CurrentBillID(ctx context.Context) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM app_state WHERE key = ?`, currentBillKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query current bill: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) SetCurrentBillID(ctx context.Context, id string) error {
	if id == "" {
		if _, err := r.db.ExecContext(ctx,
			`DELETE FROM app_state WHERE key = ?`, currentBillKey); err != nil {
			return fmt.Errorf("clear current bill: %w", err)
		}
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO app_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		currentBillKey, id)
	if err != nil {
		return fmt.Errorf("set current bill: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateReceipt(ctx context.Context, rc core.Receipt) error {
	items, err := json.Marshal(rc.Items)
	if err != nil {
		return fmt.Errorf("marshal receipt items: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO receipts (id, bill_id, status, image, raw_text, items, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rc.ID, rc.BillID, string(rc.Status), rc.Image, rc.RawText, string(items), rc.Error, rc.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	slog.InfoContext(ctx, "Receipt scan job saved",
		"id", rc.ID,
		"bill_id", rc.BillID,
		"image_bytes", len(rc.Image))
	return nil
}

func (r *SQLiteRepository) GetReceipt(ctx context.Context, id string) (core.Receipt, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, bill_id, status, image, raw_text, items, error, created_at
		 FROM receipts WHERE id = ?`, id)
	rc, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Receipt{}, core.ErrReceiptNotFound
	}
	if err != nil {
		return core.Receipt{}, fmt.Errorf("query receipt: %w", err)
	}
	return rc, nil
}

func (r *SQLiteRepository) UpdateReceipt(ctx context.Context, rc core.Receipt) error {
	items, err := json.Marshal(rc.Items)
	if err != nil {
		return fmt.Errorf("marshal receipt items: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE receipts SET status = ?, raw_text = ?, items = ?, error = ? WHERE id = ?`,
		string(rc.Status), rc.RawText, string(items), rc.Error, rc.ID)
	if err != nil {
		return fmt.Errorf("update receipt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrReceiptNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListPendingReceipts(ctx context.Context, limit int) ([]core.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, bill_id, status, image, raw_text, items, error, created_at
		 FROM receipts WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
		string(core.ReceiptStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("query pending receipts: %w", err)
	}
	defer rows.Close()

	var receipts []core.Receipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, rc)
	}
	return receipts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (core.Receipt, error) {
	var (
		rc     core.Receipt
		status string
		items  string
	)
	if err := row.Scan(&rc.ID, &rc.BillID, &status, &rc.Image, &rc.RawText, &items, &rc.Error, &rc.CreatedAt); err != nil {
		return core.Receipt{}, err
	}
	rc.Status = core.ReceiptStatus(status)
	if err := json.Unmarshal([]byte(items), &rc.Items); err != nil {
		return core.Receipt{}, fmt.Errorf("unmarshal receipt items: %w", err)
	}
	return rc, nil
}
