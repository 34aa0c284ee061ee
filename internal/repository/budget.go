package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/spendshare/internal/models"
)

type BudgetRepository struct {
	db *pgxpool.Pool
}

const budgetColumns = `id, profile_id, category, amount_cents, period, alert_threshold, start_date, end_date, created_at, updated_at`

// NewBudgetRepository создает репозиторий бюджетов.
func NewBudgetRepository(db *pgxpool.Pool) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// Create создает бюджет категории. На пару (профиль, категория)
// допускается один бюджет, дубликат дает ErrConflict.
func (r *BudgetRepository) Create(ctx context.Context, profileID uuid.UUID, category string, amountCents int64, period models.BudgetPeriod, alertThreshold int, startDate time.Time, endDate *time.Time) (models.Budget, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO budgets (profile_id, category, amount_cents, period, alert_threshold, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+budgetColumns,
		profileID, category, amountCents, period, alertThreshold, startDate, endDate,
	)

	budget, err := scanBudget(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return budget, ErrConflict
		}
		return budget, err
	}

	return budget, nil
}

// GetByID возвращает бюджет по идентификатору.
func (r *BudgetRepository) GetByID(ctx context.Context, budgetID uuid.UUID) (models.Budget, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+budgetColumns+`
		 FROM budgets
		 WHERE id = $1`,
		budgetID,
	)

	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return budget, ErrNotFound
		}
		return budget, err
	}

	return budget, nil
}

// ListByProfile возвращает бюджеты профиля.
func (r *BudgetRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Budget, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+budgetColumns+`
		 FROM budgets
		 WHERE profile_id = $1
		 ORDER BY created_at DESC`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := make([]models.Budget, 0)
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, budget)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return budgets, nil
}

// Update обновляет параметры бюджета.
func (r *BudgetRepository) Update(ctx context.Context, budgetID uuid.UUID, amountCents int64, period models.BudgetPeriod, alertThreshold int, startDate time.Time, endDate *time.Time) (models.Budget, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE budgets
		 SET amount_cents = $2,
		     period = $3,
		     alert_threshold = $4,
		     start_date = $5,
		     end_date = $6,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+budgetColumns,
		budgetID, amountCents, period, alertThreshold, startDate, endDate,
	)

	budget, err := scanBudget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return budget, ErrNotFound
		}
		return budget, err
	}

	return budget, nil
}

// Delete удаляет бюджет.
func (r *BudgetRepository) Delete(ctx context.Context, budgetID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM budgets
		 WHERE id = $1`,
		budgetID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func scanBudget(row pgx.Row) (models.Budget, error) {
	var budget models.Budget

	err := row.Scan(
		&budget.ID, &budget.ProfileID, &budget.Category, &budget.AmountCents,
		&budget.Period, &budget.AlertThreshold, &budget.StartDate, &budget.EndDate,
		&budget.CreatedAt, &budget.UpdatedAt,
	)
	if err != nil {
		return budget, err
	}

	return budget, nil
}
