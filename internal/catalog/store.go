package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store implements Repository on top of any sqlx connection, the queries
// only use syntax shared by SQLite, libSQL and PostgreSQL.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) Store {
	return Store{db: db}
}

func (s Store) FindByID(ctx context.Context, sourceId int64) (Entry, error) {
	query := s.db.Rebind(`SELECT ` + rowColumns + ` FROM books WHERE source_id = ?`)

	var r row
	err := s.db.GetContext(ctx, &r, query, sourceId)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("find book %d: %w", sourceId, err)
	}
	return r.entry(), nil
}

func (s Store) FindAll(ctx context.Context) ([]Entry, error) {
	query := `SELECT ` + rowColumns + ` FROM books ORDER BY source_id ASC`

	var rows []row
	err := s.db.SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, fmt.Errorf("find all books: %w", err)
	}
	return entries(rows), nil
}

func (s Store) Insert(ctx context.Context, entry Entry) error {
	query := s.db.Rebind(`
		INSERT INTO books (source_id, product_url, title, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (source_id) DO NOTHING
	`)

	result, err := s.db.ExecContext(
		ctx, query,
		entry.SourceID,
		entry.ProductURL,
		entry.Title,
		entry.UpdatedAt.Unix(),
	)
	err = execRequireRows(result, err, ErrAlreadyExists)
	if err != nil {
		return fmt.Errorf("insert book %d: %w", entry.SourceID, err)
	}
	return nil
}

func (s Store) Delete(ctx context.Context, sourceId int64) error {
	query := s.db.Rebind(`DELETE FROM books WHERE source_id = ?`)

	result, err := s.db.ExecContext(ctx, query, sourceId)
	err = execRequireRows(result, err, ErrNotFound)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", sourceId, err)
	}
	return nil
}

func (s Store) PendingResolution(ctx context.Context, now time.Time) ([]Entry, error) {
	query := s.db.Rebind(`
		SELECT ` + rowColumns + ` FROM books
		WHERE resolved_id IS NULL
			AND (retry_after IS NULL OR retry_after <= ?)
		ORDER BY source_id ASC
	`)

	var rows []row
	err := s.db.SelectContext(ctx, &rows, query, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("find books pending resolution: %w", err)
	}
	return entries(rows), nil
}

func (s Store) Resolved(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT ` + rowColumns + ` FROM books
		WHERE resolved_id IS NOT NULL
		ORDER BY updated_at ASC, source_id ASC
	`

	var rows []row
	err := s.db.SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, fmt.Errorf("find resolved books: %w", err)
	}
	return entries(rows), nil
}

func (s Store) SetResolvedID(ctx context.Context, sourceId int64, resolvedId string, at time.Time) error {
	query := s.db.Rebind(`
		UPDATE books
		SET resolved_id = ?, retry_after = NULL, updated_at = ?
		WHERE source_id = ? AND resolved_id IS NULL
	`)

	result, err := s.db.ExecContext(ctx, query, resolvedId, at.Unix(), sourceId)
	err = execRequireRows(result, err, errNoRowsAffected)
	if errors.Is(err, errNoRowsAffected) {
		err = s.missingOr(ctx, sourceId, ErrAlreadyResolved)
	}
	if err != nil {
		return fmt.Errorf("set resolved id of book %d: %w", sourceId, err)
	}
	return nil
}

func (s Store) SetCooldown(ctx context.Context, sourceId int64, until, at time.Time) error {
	query := s.db.Rebind(`
		UPDATE books
		SET retry_after = ?, updated_at = ?
		WHERE source_id = ? AND resolved_id IS NULL
	`)

	result, err := s.db.ExecContext(ctx, query, until.Unix(), at.Unix(), sourceId)
	err = execRequireRows(result, err, errNoRowsAffected)
	if errors.Is(err, errNoRowsAffected) {
		err = s.missingOr(ctx, sourceId, ErrAlreadyResolved)
	}
	if err != nil {
		return fmt.Errorf("set cooldown of book %d: %w", sourceId, err)
	}
	return nil
}

func (s Store) SetPricing(ctx context.Context, sourceId int64, pricing Pricing, at time.Time) error {
	err := pricing.validate()
	if err != nil {
		return fmt.Errorf("set pricing of book %d: %w", sourceId, err)
	}

	query := s.db.Rebind(`
		UPDATE books
		SET list_price = ?, current_price = ?, discount_rate = ?, updated_at = ?
		WHERE source_id = ?
	`)

	result, err := s.db.ExecContext(
		ctx, query,
		pricing.ListPrice,
		pricing.CurrentPrice,
		pricing.DiscountRate(),
		at.Unix(),
		sourceId,
	)
	err = execRequireRows(result, err, ErrNotFound)
	if err != nil {
		return fmt.Errorf("set pricing of book %d: %w", sourceId, err)
	}
	return nil
}

func (s Store) Discounts(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultDiscountsLimit
	}

	query := s.db.Rebind(`
		SELECT ` + rowColumns + ` FROM books
		WHERE title IS NOT NULL
			AND list_price IS NOT NULL
			AND current_price IS NOT NULL
			AND discount_rate IS NOT NULL
		ORDER BY discount_rate DESC, current_price DESC, ` + s.titleOrder() + `
		LIMIT ?
	`)

	var rows []row
	err := s.db.SelectContext(ctx, &rows, query, limit)
	if err != nil {
		return nil, fmt.Errorf("find discounts: %w", err)
	}
	return entries(rows), nil
}

// titleOrder sorts titles by bytes. SQLite's default collation already does,
// PostgreSQL needs the "C" collation to ignore the database locale.
func (s Store) titleOrder() string {
	if s.db.DriverName() == "postgres" {
		return `title COLLATE "C" ASC`
	}
	return "title ASC"
}

var errNoRowsAffected = errors.New("no rows affected")

// missingOr distinguishes an update that matched nothing because the row is
// gone from one that was filtered out by its guard.
func (s Store) missingOr(ctx context.Context, sourceId int64, guardErr error) error {
	_, err := s.FindByID(ctx, sourceId)
	if err != nil {
		return err
	}
	return guardErr
}

// execRequireRows validates that an ExecContext result affected at least one row.
// Returns err if non-nil, or notFoundErr if rowsAffected is 0.
func execRequireRows(result sql.Result, err, notFoundErr error) error {
	if err != nil {
		return err
	}
	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return affectedErr
	}
	if n == 0 {
		return notFoundErr
	}
	return nil
}
