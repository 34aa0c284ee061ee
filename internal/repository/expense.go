package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/spendshare/internal/models"
)

type ExpenseRepository struct {
	db *pgxpool.Pool
}

const expenseColumns = `id, profile_id, user_id, amount_cents, category, payment_method, description, expense_date, created_at, updated_at`

// NewExpenseRepository создает репозиторий расходов.
func NewExpenseRepository(db *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create добавляет расход в профиль.
func (r *ExpenseRepository) Create(ctx context.Context, profileID, userID uuid.UUID, amountCents int64, category string, paymentMethod models.PaymentMethod, description *string, expenseDate time.Time) (models.Expense, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO expenses (profile_id, user_id, amount_cents, category, payment_method, description, expense_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+expenseColumns,
		profileID, userID, amountCents, category, paymentMethod, description, expenseDate,
	)

	return scanExpense(row)
}

// GetByID возвращает расход по идентификатору.
func (r *ExpenseRepository) GetByID(ctx context.Context, expenseID uuid.UUID) (models.Expense, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses
		 WHERE id = $1`,
		expenseID,
	)

	expense, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense, ErrNotFound
		}
		return expense, err
	}

	return expense, nil
}

// ListByProfile возвращает расходы профиля, свежие первыми.
// limit <= 0 снимает ограничение.
func (r *ExpenseRepository) ListByProfile(ctx context.Context, profileID uuid.UUID, limit int) ([]models.Expense, error) {
	query := `SELECT ` + expenseColumns + `
		 FROM expenses
		 WHERE profile_id = $1
		 ORDER BY expense_date DESC, created_at DESC`
	args := []interface{}{profileID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]models.Expense, 0)
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return expenses, nil
}

// Update обновляет поля расхода.
func (r *ExpenseRepository) Update(ctx context.Context, expenseID uuid.UUID, amountCents int64, category string, paymentMethod models.PaymentMethod, description *string, expenseDate time.Time) (models.Expense, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE expenses
		 SET amount_cents = $2,
		     category = $3,
		     payment_method = $4,
		     description = $5,
		     expense_date = $6,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+expenseColumns,
		expenseID, amountCents, category, paymentMethod, description, expenseDate,
	)

	expense, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense, ErrNotFound
		}
		return expense, err
	}

	return expense, nil
}

// Delete удаляет расход.
func (r *ExpenseRepository) Delete(ctx context.Context, expenseID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM expenses
		 WHERE id = $1`,
		expenseID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanExpense(row pgx.Row) (models.Expense, error) {
	var expense models.Expense

	err := row.Scan(
		&expense.ID, &expense.ProfileID, &expense.UserID, &expense.AmountCents,
		&expense.Category, &expense.PaymentMethod, &expense.Description,
		&expense.ExpenseDate, &expense.CreatedAt, &expense.UpdatedAt,
	)
	if err != nil {
		return expense, err
	}

	return expense, nil
}
