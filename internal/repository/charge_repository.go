package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/cobranca/billing-backoffice/internal/domainerr"
	"github.com/cobranca/billing-backoffice/internal/models"
)

const chargeColumns = `id, customer_id, payment_gateway_id, gateway_charge_id, amount,
	description, payment_method, status, due_date, paid_at, metadata,
	created_at, updated_at, deleted_at`

type ChargeRepository struct {
	db *sql.DB
}

func NewChargeRepository(db *sql.DB) *ChargeRepository {
	return &ChargeRepository{db: db}
}

func (r *ChargeRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS charges (
			id BIGSERIAL PRIMARY KEY,
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			payment_gateway_id BIGINT,
			gateway_charge_id VARCHAR(255) UNIQUE,
			amount NUMERIC(10,2) NOT NULL CHECK (amount > 0),
			description VARCHAR(500) NOT NULL,
			payment_method VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			due_date DATE NOT NULL,
			paid_at TIMESTAMPTZ,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_charges_customer_status ON charges(customer_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_charges_status ON charges(status)`,
		`CREATE INDEX IF NOT EXISTS idx_charges_due_date ON charges(due_date)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func scanCharge(row interface{ Scan(...any) error }) (*models.Charge, error) {
	var c models.Charge
	err := row.Scan(
		&c.ID, &c.CustomerID, &c.PaymentGatewayID, &c.GatewayChargeID, &c.Amount,
		&c.Description, &c.PaymentMethod, &c.Status, &c.DueDate, &c.PaidAt, &c.Metadata,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChargeRepository) Create(ctx context.Context, charge *models.Charge) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO charges (customer_id, payment_gateway_id, gateway_charge_id, amount,
			description, payment_method, status, due_date, paid_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, charge.CustomerID, charge.PaymentGatewayID, charge.GatewayChargeID, charge.Amount,
		charge.Description, charge.PaymentMethod, charge.Status, charge.DueDate,
		charge.PaidAt, charge.Metadata)

	return row.Scan(&charge.ID, &charge.CreatedAt, &charge.UpdatedAt)
}

func (r *ChargeRepository) GetByID(ctx context.Context, id int64) (*models.Charge, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+chargeColumns+` FROM charges
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	charge, err := scanCharge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.ChargeNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return charge, nil
}

func (r *ChargeRepository) GetByGatewayChargeID(ctx context.Context, gatewayChargeID string) (*models.Charge, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+chargeColumns+` FROM charges
		WHERE gateway_charge_id = $1 AND deleted_at IS NULL
	`, gatewayChargeID)

	charge, err := scanCharge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.New(domainerr.KindNotFound, "charge_not_found",
			"no charge with gateway id %q", gatewayChargeID)
	}
	if err != nil {
		return nil, err
	}
	return charge, nil
}

func (r *ChargeRepository) List(ctx context.Context, filter models.ChargeFilter) ([]models.Charge, int64, error) {
	filter.Normalize()

	where := []string{"deleted_at IS NULL"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.DueFrom != nil {
		args = append(args, models.DateOnly(*filter.DueFrom))
		where = append(where, fmt.Sprintf("due_date >= $%d", len(args)))
	}
	if filter.DueTo != nil {
		args = append(args, models.DateOnly(*filter.DueTo))
		where = append(where, fmt.Sprintf("due_date <= $%d", len(args)))
	}
	if filter.OnlyOverdue {
		args = append(args, models.StatusPending)
		where = append(where, fmt.Sprintf("status = $%d AND due_date < CURRENT_DATE", len(args)))
	}

	clause := strings.Join(where, " AND ")

	var total int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM charges WHERE "+clause, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM charges WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		chargeColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	charges := []models.Charge{}
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, 0, err
		}
		charges = append(charges, *c)
	}
	return charges, total, rows.Err()
}

// Mutate runs fn against the freshly-read row under a row lock, then writes
// the result back. Guards evaluated inside fn therefore see committed state,
// never a caller-supplied stale copy; concurrent conflicting transitions on
// the same charge serialize on the lock and the loser re-evaluates its guard
// against the winner's outcome.
func (r *ChargeRepository) Mutate(ctx context.Context, id int64, fn func(*models.Charge) error) (*models.Charge, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+chargeColumns+` FROM charges
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, id)

	charge, err := scanCharge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.ChargeNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	if err := fn(charge); err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE charges
		SET payment_gateway_id = $1, gateway_charge_id = $2, amount = $3,
			description = $4, status = $5, due_date = $6, paid_at = $7,
			metadata = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`, charge.PaymentGatewayID, charge.GatewayChargeID, charge.Amount,
		charge.Description, charge.Status, charge.DueDate, charge.PaidAt,
		charge.Metadata, id).Scan(&charge.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return charge, nil
}

func (r *ChargeRepository) SoftDelete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE charges SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domainerr.ChargeNotFound(id)
	}
	return nil
}

// ExpireOverdue is the compare-and-swap sweep: only rows still pending move,
// so a charge paid between the read and the write is never expired.
func (r *ChargeRepository) ExpireOverdue(ctx context.Context, now time.Time) ([]models.Charge, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE charges
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_date < $3 AND deleted_at IS NULL
		RETURNING `+chargeColumns,
		models.StatusExpired, models.StatusPending, models.DateOnly(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []models.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		expired = append(expired, *c)
	}
	return expired, rows.Err()
}
