package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/spendshare/internal/models"
)

type MemberRepository struct {
	db *pgxpool.Pool
}

// MemberWithUser добавляет к участнику отображаемые данные пользователя.
type MemberWithUser struct {
	models.ProfileMember
	Email    string  `json:"email"`
	FullName *string `json:"full_name,omitempty"`
}

// NewMemberRepository создает репозиторий участников профилей.
func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

// ListByProfile возвращает активных участников профиля.
func (r *MemberRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]MemberWithUser, error) {
	rows, err := r.db.Query(ctx,
		`SELECT m.id, m.profile_id, m.user_id, m.role, m.permissions, m.status, m.invited_by, m.joined_at,
		        u.email, u.full_name
		 FROM profile_members m
		 JOIN user_profiles u ON u.id = m.user_id
		 WHERE m.profile_id = $1 AND m.status = 'active'
		 ORDER BY m.joined_at`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]MemberWithUser, 0)
	for rows.Next() {
		var member MemberWithUser
		var rawPermissions []byte

		err := rows.Scan(
			&member.ID, &member.ProfileID, &member.UserID, &member.Role,
			&rawPermissions, &member.Status, &member.InvitedBy, &member.JoinedAt,
			&member.Email, &member.FullName,
		)
		if err != nil {
			return nil, err
		}

		member.Permissions, err = unmarshalPermissions(rawPermissions)
		if err != nil {
			return nil, err
		}

		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

// Get возвращает активное членство пользователя в профиле.
func (r *MemberRepository) Get(ctx context.Context, profileID, userID uuid.UUID) (models.ProfileMember, error) {
	var member models.ProfileMember
	var rawPermissions []byte

	err := r.db.QueryRow(ctx,
		`SELECT id, profile_id, user_id, role, permissions, status, invited_by, joined_at
		 FROM profile_members
		 WHERE profile_id = $1 AND user_id = $2 AND status = 'active'`,
		profileID, userID,
	).Scan(
		&member.ID, &member.ProfileID, &member.UserID, &member.Role,
		&rawPermissions, &member.Status, &member.InvitedBy, &member.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return member, ErrNotFound
		}
		return member, err
	}

	member.Permissions, err = unmarshalPermissions(rawPermissions)
	if err != nil {
		return member, err
	}

	return member, nil
}

// Access возвращает роль и права пользователя в профиле.
// Владелец получает полный набор прав без записи в profile_members.
func (r *MemberRepository) Access(ctx context.Context, profileID, userID uuid.UUID) (models.Role, models.Permissions, error) {
	var ownerID uuid.UUID

	err := r.db.QueryRow(ctx,
		`SELECT user_id FROM expense_profiles WHERE id = $1`,
		profileID,
	).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.Permissions{}, ErrNotFound
		}
		return "", models.Permissions{}, err
	}

	if ownerID == userID {
		return models.RoleOwner, models.OwnerPermissions(), nil
	}

	member, err := r.Get(ctx, profileID, userID)
	if err != nil {
		return "", models.Permissions{}, err
	}

	return member.Role, member.Permissions, nil
}

// UpdateRole меняет роль активного участника.
func (r *MemberRepository) UpdateRole(ctx context.Context, profileID, userID uuid.UUID, role models.Role) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE profile_members
		 SET role = $3
		 WHERE profile_id = $1 AND user_id = $2 AND status = 'active'`,
		profileID, userID, role,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdatePermissions меняет права активного участника.
func (r *MemberRepository) UpdatePermissions(ctx context.Context, profileID, userID uuid.UUID, permissions models.Permissions) error {
	rawPermissions, err := marshalPermissions(permissions)
	if err != nil {
		return err
	}

	cmd, err := r.db.Exec(ctx,
		`UPDATE profile_members
		 SET permissions = $3
		 WHERE profile_id = $1 AND user_id = $2 AND status = 'active'`,
		profileID, userID, rawPermissions,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Remove помечает участника удаленным, история членства сохраняется.
func (r *MemberRepository) Remove(ctx context.Context, profileID, userID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE profile_members
		 SET status = 'removed'
		 WHERE profile_id = $1 AND user_id = $2 AND status = 'active'`,
		profileID, userID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Join присоединяет пользователя к профилю по разрешенному коду.
// Владелец и уже активные участники получают ErrConflict. Для
// персонального приглашения членство наследует его роль и права,
// а само приглашение помечается принятым в той же транзакции.
func (r *MemberRepository) Join(ctx context.Context, resolution CodeResolution, userID uuid.UUID) (models.ProfileMember, error) {
	var member models.ProfileMember

	if resolution.Profile.UserID == userID {
		return member, ErrConflict
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return member, err
	}
	defer tx.Rollback(ctx)

	var existingStatus models.MemberStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM profile_members
		 WHERE profile_id = $1 AND user_id = $2`,
		resolution.Profile.ID, userID,
	).Scan(&existingStatus)
	switch {
	case err == nil && existingStatus == models.MemberStatusActive:
		return member, ErrConflict
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		return member, err
	}

	role := models.RoleMember
	permissions := models.DefaultMemberPermissions()
	var invitedBy *uuid.UUID

	if resolution.Invitation != nil {
		role = resolution.Invitation.Role
		permissions = resolution.Invitation.Permissions
		invitedBy = &resolution.Invitation.InvitedBy
	}

	rawPermissions, err := marshalPermissions(permissions)
	if err != nil {
		return member, err
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO profile_members (profile_id, user_id, role, permissions, status, invited_by)
		 VALUES ($1, $2, $3, $4, 'active', $5)
		 ON CONFLICT (profile_id, user_id)
		 DO UPDATE SET role = $3, permissions = $4, status = 'active', invited_by = $5, joined_at = NOW()
		 RETURNING id, profile_id, user_id, role, status, invited_by, joined_at`,
		resolution.Profile.ID, userID, role, rawPermissions, invitedBy,
	).Scan(
		&member.ID, &member.ProfileID, &member.UserID, &member.Role,
		&member.Status, &member.InvitedBy, &member.JoinedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return member, ErrConflict
		}
		return member, err
	}
	member.Permissions = permissions

	if resolution.Invitation != nil {
		_, err = tx.Exec(ctx,
			`UPDATE profile_invitations
			 SET status = 'accepted'
			 WHERE id = $1 AND status = 'pending'`,
			resolution.Invitation.ID,
		)
		if err != nil {
			return member, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return member, err
	}

	return member, nil
}
