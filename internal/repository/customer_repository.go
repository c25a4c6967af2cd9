package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cobranca/billing-backoffice/internal/domainerr"
	"github.com/cobranca/billing-backoffice/internal/models"
)

const customerColumns = `id, name, email, document, phone, status, created_at, updated_at, deleted_at`

type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			document VARCHAR(20) NOT NULL,
			phone VARCHAR(20),
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_email ON customers(email) WHERE deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_document ON customers(document) WHERE deleted_at IS NULL`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func scanCustomer(row interface{ Scan(...any) error }) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Document, &c.Phone, &c.Status,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, email, document, phone, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, customer.Name, customer.Email, customer.Document, customer.Phone, customer.Status)

	return row.Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	customer, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.CustomerNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *CustomerRepository) List(ctx context.Context, page, perPage int) ([]models.Customer, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > models.MaxPerPage {
		perPage = models.DefaultPerPage
	}

	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM customers WHERE deleted_at IS NULL`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, *c)
	}
	return customers, total, rows.Err()
}

func (r *CustomerRepository) Mutate(ctx context.Context, id int64, fn func(*models.Customer) error) (*models.Customer, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, id)

	customer, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerr.CustomerNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	if err := fn(customer); err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $1, email = $2, document = $3, phone = $4, status = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`, customer.Name, customer.Email, customer.Document, customer.Phone,
		customer.Status, id).Scan(&customer.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *CustomerRepository) SoftDelete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE customers SET deleted_at = NOW(), updated_at = NOW()
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
		return domainerr.CustomerNotFound(id)
	}
	return nil
}

func (r *CustomerRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1 AND deleted_at IS NULL)`, id)
}

func (r *CustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE email = $1 AND deleted_at IS NULL)`, email)
}

func (r *CustomerRepository) ExistsByDocument(ctx context.Context, document string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE document = $1 AND deleted_at IS NULL)`, document)
}

func (r *CustomerRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&exists)
	return exists, err
}
