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

type InvitationRepository struct {
	db       *pgxpool.Pool
	profiles *ProfileRepository
}

// CodeKind различает персональное приглашение и общий код профиля.
type CodeKind string

const (
	CodeKindInvitation CodeKind = "invitation"
	CodeKindShareCode  CodeKind = "share_code"
)

// CodeResolution — результат разбора кода присоединения.
type CodeResolution struct {
	Kind        CodeKind
	Profile     models.ExpenseProfile
	InviterName *string
	Invitation  *models.ProfileInvitation
}

const invitationColumns = `id, profile_id, invited_email, invited_by, role, permissions, invitation_code, message, status, expires_at, created_at`

// NewInvitationRepository создает репозиторий приглашений.
func NewInvitationRepository(db *pgxpool.Pool, profiles *ProfileRepository) *InvitationRepository {
	return &InvitationRepository{db: db, profiles: profiles}
}

// Create сохраняет приглашение с уже сгенерированным кодом.
func (r *InvitationRepository) Create(ctx context.Context, profileID uuid.UUID, invitedEmail string, invitedBy uuid.UUID, role models.Role, permissions models.Permissions, code string, message *string, expiresAt time.Time) (models.ProfileInvitation, error) {
	var invitation models.ProfileInvitation

	rawPermissions, err := marshalPermissions(permissions)
	if err != nil {
		return invitation, err
	}

	row := r.db.QueryRow(ctx,
		`INSERT INTO profile_invitations (profile_id, invited_email, invited_by, role, permissions, invitation_code, message, status, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
		 RETURNING `+invitationColumns,
		profileID, invitedEmail, invitedBy, role, rawPermissions, code, message, expiresAt,
	)

	return scanInvitation(row)
}

// ListByProfile возвращает приглашения профиля, свежие первыми.
func (r *InvitationRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.ProfileInvitation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+invitationColumns+`
		 FROM profile_invitations
		 WHERE profile_id = $1
		 ORDER BY created_at DESC`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invitations := make([]models.ProfileInvitation, 0)
	for rows.Next() {
		invitation, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, invitation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return invitations, nil
}

// GetByCode возвращает приглашение по коду независимо от статуса.
func (r *InvitationRepository) GetByCode(ctx context.Context, code string) (models.ProfileInvitation, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+invitationColumns+`
		 FROM profile_invitations
		 WHERE invitation_code = $1`,
		code,
	)

	invitation, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invitation, ErrNotFound
		}
		return invitation, err
	}

	return invitation, nil
}

// Decline помечает ожидающее приглашение отклоненным.
func (r *InvitationRepository) Decline(ctx context.Context, invitationID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE profile_invitations
		 SET status = 'declined'
		 WHERE id = $1 AND status = 'pending'`,
		invitationID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Revoke удаляет ожидающее приглашение профиля.
func (r *InvitationRepository) Revoke(ctx context.Context, profileID, invitationID uuid.UUID) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM profile_invitations
		 WHERE id = $1 AND profile_id = $2 AND status = 'pending'`,
		invitationID, profileID,
	)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ResolveCode разбирает код присоединения: сначала ищет персональное
// приглашение, затем общий код профиля. Истекшее приглашение дает
// ErrExpired, уже использованное — ErrInvalid.
func (r *InvitationRepository) ResolveCode(ctx context.Context, code string) (CodeResolution, error) {
	var resolution CodeResolution

	invitation, err := r.GetByCode(ctx, code)
	switch {
	case err == nil:
		if invitation.Status != models.InvitationStatusPending {
			return resolution, ErrInvalid
		}
		if time.Now().After(invitation.ExpiresAt) {
			return resolution, ErrExpired
		}

		profile, err := r.profiles.GetByID(ctx, invitation.ProfileID)
		if err != nil {
			return resolution, err
		}

		inviterName, err := r.displayName(ctx, invitation.InvitedBy)
		if err != nil {
			return resolution, err
		}

		resolution.Kind = CodeKindInvitation
		resolution.Profile = profile
		resolution.InviterName = inviterName
		resolution.Invitation = &invitation
		return resolution, nil

	case !errors.Is(err, ErrNotFound):
		return resolution, err
	}

	profile, err := r.profiles.GetByShareCode(ctx, code)
	if err != nil {
		return resolution, err
	}

	inviterName, err := r.displayName(ctx, profile.UserID)
	if err != nil {
		return resolution, err
	}

	resolution.Kind = CodeKindShareCode
	resolution.Profile = profile
	resolution.InviterName = inviterName
	return resolution, nil
}

func (r *InvitationRepository) displayName(ctx context.Context, userID uuid.UUID) (*string, error) {
	var email string
	var fullName *string

	err := r.db.QueryRow(ctx,
		`SELECT email, full_name FROM user_profiles WHERE id = $1`,
		userID,
	).Scan(&email, &fullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if fullName != nil && *fullName != "" {
		return fullName, nil
	}
	return &email, nil
}

func scanInvitation(row pgx.Row) (models.ProfileInvitation, error) {
	var invitation models.ProfileInvitation
	var rawPermissions []byte

	err := row.Scan(
		&invitation.ID, &invitation.ProfileID, &invitation.InvitedEmail, &invitation.InvitedBy,
		&invitation.Role, &rawPermissions, &invitation.InvitationCode, &invitation.Message,
		&invitation.Status, &invitation.ExpiresAt, &invitation.CreatedAt,
	)
	if err != nil {
		return invitation, err
	}

	invitation.Permissions, err = unmarshalPermissions(rawPermissions)
	if err != nil {
		return invitation, err
	}

	return invitation, nil
}
