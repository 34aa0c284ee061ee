package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/spendshare/internal/models"
)

type ProfileRepository struct {
	db *pgxpool.Pool
}

// ProfileWithOwner добавляет к профилю отображаемые данные владельца.
type ProfileWithOwner struct {
	Profile     models.ExpenseProfile
	OwnerEmail  string
	OwnerName   *string
	Role        models.Role
	Permissions models.Permissions
}

// ProfileSnapshot — полный снимок состояния профиля для согласования.
type ProfileSnapshot struct {
	Profile  models.ExpenseProfile `json:"profile"`
	Expenses []models.Expense      `json:"expenses"`
	Budgets  []models.Budget       `json:"budgets"`
	Members  []MemberWithUser      `json:"members"`
}

// Балансы не хранятся: агрегаты пересчитываются при каждом чтении,
// чтобы клиентские и серверные суммы не расходились.
const profileColumns = `p.id, p.user_id, p.name, p.type, p.currency, p.is_shared, p.share_code, p.share_settings,
	        p.created_at, p.updated_at,
	        COALESCE((SELECT SUM(e.amount_cents) FROM expenses e WHERE e.profile_id = p.id), 0) AS balance_cents,
	        COALESCE((SELECT SUM(e.amount_cents) FROM expenses e
	                  WHERE e.profile_id = p.id AND e.expense_date >= date_trunc('month', NOW())), 0) AS monthly_spent_cents`

// NewProfileRepository создает репозиторий профилей расходов.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create создает профиль расходов.
func (r *ProfileRepository) Create(ctx context.Context, userID uuid.UUID, name string, profileType models.ProfileType, currency string, isShared bool, shareCode *string, settings *models.ShareSettings) (models.ExpenseProfile, error) {
	var profile models.ExpenseProfile

	rawSettings, err := marshalShareSettings(settings)
	if err != nil {
		return profile, err
	}

	var id uuid.UUID
	err = r.db.QueryRow(ctx,
		`INSERT INTO expense_profiles (user_id, name, type, currency, is_shared, share_code, share_settings)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		userID, name, profileType, currency, isShared, shareCode, rawSettings,
	).Scan(&id)
	if err != nil {
		return profile, err
	}

	return r.GetByID(ctx, id)
}

// GetByID возвращает профиль с пересчитанными агрегатами.
func (r *ProfileRepository) GetByID(ctx context.Context, profileID uuid.UUID) (models.ExpenseProfile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM expense_profiles p
		 WHERE p.id = $1`,
		profileID,
	)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, ErrNotFound
		}
		return profile, err
	}

	return profile, nil
}

// GetByShareCode находит расшаренный профиль по коду.
func (r *ProfileRepository) GetByShareCode(ctx context.Context, shareCode string) (models.ExpenseProfile, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+profileColumns+`
		 FROM expense_profiles p
		 WHERE p.share_code = $1 AND p.is_shared`,
		shareCode,
	)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, ErrNotFound
		}
		return profile, err
	}

	return profile, nil
}

// ListOwned возвращает профили, которыми пользователь владеет.
func (r *ProfileRepository) ListOwned(ctx context.Context, userID uuid.UUID) ([]models.ExpenseProfile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+profileColumns+`
		 FROM expense_profiles p
		 WHERE p.user_id = $1
		 ORDER BY p.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.ExpenseProfile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// ListJoined возвращает чужие профили, где пользователь активный участник.
func (r *ProfileRepository) ListJoined(ctx context.Context, userID uuid.UUID) ([]ProfileWithOwner, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+profileColumns+`,
		        u.email, u.full_name, m.role, m.permissions
		 FROM profile_members m
		 JOIN expense_profiles p ON p.id = m.profile_id
		 JOIN user_profiles u ON u.id = p.user_id
		 WHERE m.user_id = $1 AND m.status = 'active'
		 ORDER BY m.joined_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]ProfileWithOwner, 0)
	for rows.Next() {
		var entry ProfileWithOwner
		var rawSettings []byte
		var rawPermissions []byte

		err := rows.Scan(
			&entry.Profile.ID, &entry.Profile.UserID, &entry.Profile.Name, &entry.Profile.Type,
			&entry.Profile.Currency, &entry.Profile.IsShared, &entry.Profile.ShareCode, &rawSettings,
			&entry.Profile.CreatedAt, &entry.Profile.UpdatedAt,
			&entry.Profile.BalanceCents, &entry.Profile.MonthlySpentCents,
			&entry.OwnerEmail, &entry.OwnerName, &entry.Role, &rawPermissions,
		)
		if err != nil {
			return nil, err
		}

		entry.Profile.ShareSettings, err = unmarshalShareSettings(rawSettings)
		if err != nil {
			return nil, err
		}

		entry.Permissions, err = unmarshalPermissions(rawPermissions)
		if err != nil {
			return nil, err
		}

		profiles = append(profiles, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update обновляет имя, тип и валюту профиля владельца.
func (r *ProfileRepository) Update(ctx context.Context, ownerID, profileID uuid.UUID, name string, profileType models.ProfileType, currency string) (models.ExpenseProfile, error) {
	cmd, err := r.db.Exec(ctx,
		`UPDATE expense_profiles
		 SET name = $3, type = $4, currency = $5, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		profileID, ownerID, name, profileType, currency,
	)
	if err != nil {
		return models.ExpenseProfile{}, err
	}

	if cmd.RowsAffected() == 0 {
		return models.ExpenseProfile{}, ErrNotFound
	}

	return r.GetByID(ctx, profileID)
}

// UpdateSharing включает или выключает шаринг и сохраняет код доступа.
func (r *ProfileRepository) UpdateSharing(ctx context.Context, ownerID, profileID uuid.UUID, isShared bool, shareCode *string, settings *models.ShareSettings) (models.ExpenseProfile, error) {
	rawSettings, err := marshalShareSettings(settings)
	if err != nil {
		return models.ExpenseProfile{}, err
	}

	cmd, err := r.db.Exec(ctx,
		`UPDATE expense_profiles
		 SET is_shared = $3, share_code = $4, share_settings = $5, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2`,
		profileID, ownerID, isShared, shareCode, rawSettings,
	)
	if err != nil {
		return models.ExpenseProfile{}, err
	}

	if cmd.RowsAffected() == 0 {
		return models.ExpenseProfile{}, ErrNotFound
	}

	return r.GetByID(ctx, profileID)
}

// Delete удаляет профиль владельца вместе с содержимым.
func (r *ProfileRepository) Delete(ctx context.Context, ownerID, profileID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM expense_profiles
		 WHERE id = $1 AND user_id = $2`,
		profileID, ownerID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Snapshot собирает полный снимок профиля одним обращением.
func (r *ProfileRepository) Snapshot(ctx context.Context, profileID uuid.UUID, expenses *ExpenseRepository, budgets *BudgetRepository, members *MemberRepository) (ProfileSnapshot, error) {
	var snapshot ProfileSnapshot

	profile, err := r.GetByID(ctx, profileID)
	if err != nil {
		return snapshot, err
	}

	expenseRows, err := expenses.ListByProfile(ctx, profileID, 0)
	if err != nil {
		return snapshot, err
	}

	budgetRows, err := budgets.ListByProfile(ctx, profileID)
	if err != nil {
		return snapshot, err
	}

	memberRows, err := members.ListByProfile(ctx, profileID)
	if err != nil {
		return snapshot, err
	}

	snapshot.Profile = profile
	snapshot.Expenses = expenseRows
	snapshot.Budgets = budgetRows
	snapshot.Members = memberRows
	return snapshot, nil
}

func scanProfile(row pgx.Row) (models.ExpenseProfile, error) {
	var profile models.ExpenseProfile
	var rawSettings []byte

	err := row.Scan(
		&profile.ID, &profile.UserID, &profile.Name, &profile.Type,
		&profile.Currency, &profile.IsShared, &profile.ShareCode, &rawSettings,
		&profile.CreatedAt, &profile.UpdatedAt,
		&profile.BalanceCents, &profile.MonthlySpentCents,
	)
	if err != nil {
		return profile, err
	}

	profile.ShareSettings, err = unmarshalShareSettings(rawSettings)
	if err != nil {
		return profile, err
	}

	return profile, nil
}
