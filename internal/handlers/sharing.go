package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/spendshare/internal/auth"
	"example.com/spendshare/internal/mailer"
	"example.com/spendshare/internal/models"
	"example.com/spendshare/internal/notifications"
	"example.com/spendshare/internal/repository"
	"example.com/spendshare/internal/sharing"
)

type SharingHandler struct {
	Profiles      *repository.ProfileRepository
	Members       *repository.MemberRepository
	Invitations   *repository.InvitationRepository
	Users         *repository.UserRepository
	Codes         *sharing.Generator
	Mail          *mailer.Mailer
	Hub           *notifications.Hub
	Logger        *slog.Logger
	InvitationTTL time.Duration
}

// NewSharingHandler создает обработчик совместного доступа к профилям.
func NewSharingHandler(profiles *repository.ProfileRepository, members *repository.MemberRepository, invitations *repository.InvitationRepository, users *repository.UserRepository, codes *sharing.Generator, mail *mailer.Mailer, hub *notifications.Hub, logger *slog.Logger, invitationTTL time.Duration) *SharingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SharingHandler{
		Profiles:      profiles,
		Members:       members,
		Invitations:   invitations,
		Users:         users,
		Codes:         codes,
		Mail:          mail,
		Hub:           hub,
		Logger:        logger,
		InvitationTTL: invitationTTL,
	}
}

type UpdateSharingRequest struct {
	IsShared      bool                  `json:"is_shared"`
	ShareSettings *models.ShareSettings `json:"share_settings"`
}

type UpdateMemberRequest struct {
	Role        string              `json:"role" validate:"required,oneof=admin member"`
	Permissions *models.Permissions `json:"permissions"`
}

type CreateInvitationRequest struct {
	Email       string              `json:"email" validate:"required,email"`
	Role        string              `json:"role" validate:"required,oneof=admin member"`
	Permissions *models.Permissions `json:"permissions"`
	Message     *string             `json:"message" validate:"omitempty,max=500"`
}

type MemberListResponse struct {
	Members []repository.MemberWithUser `json:"members"`
}

type InvitationResponse struct {
	Invitation models.ProfileInvitation `json:"invitation"`
}

type InvitationListResponse struct {
	Invitations []models.ProfileInvitation `json:"invitations"`
}

// UpdateSharing включает или выключает совместный доступ. Только владелец.
// При первом включении выпускается цифровой код профиля.
func (h *SharingHandler) UpdateSharing(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profileID, ok, err := parseProfileID(c)
	if !ok {
		return err
	}

	var req UpdateSharingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	profile, err := h.Profiles.GetByID(c.Request().Context(), profileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		return serverError(c)
	}
	if profile.UserID != userID {
		return forbidden(c)
	}

	shareCode := profile.ShareCode
	settings := req.ShareSettings

	if req.IsShared {
		if settings == nil {
			settings = &models.ShareSettings{AllowView: true}
		}
		if shareCode == nil {
			code, err := h.Codes.ShareCode()
			if err != nil {
				return serverError(c)
			}
			shareCode = &code
		}
	} else {
		shareCode = nil
		settings = nil
	}

	updated, err := h.Profiles.UpdateSharing(c.Request().Context(), userID, profileID, req.IsShared, shareCode, settings)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		return serverError(c)
	}

	h.Hub.Publish(profileID, notifications.Event{
		Table:   "expense_profiles",
		Kind:    notifications.ChangeUpdate,
		ActorID: userID,
	})

	return c.JSON(http.StatusOK, toProfileResponse(updated))
}

// RegenerateCode выпускает новый код профиля, старый перестает работать.
func (h *SharingHandler) RegenerateCode(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profileID, ok, err := parseProfileID(c)
	if !ok {
		return err
	}

	profile, err := h.Profiles.GetByID(c.Request().Context(), profileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		return serverError(c)
	}
	if profile.UserID != userID {
		return forbidden(c)
	}
	if !profile.IsShared {
		return badRequest(c, "profile is not shared")
	}

	code, err := h.Codes.ShareCode()
	if err != nil {
		return serverError(c)
	}

	updated, err := h.Profiles.UpdateSharing(c.Request().Context(), userID, profileID, true, &code, profile.ShareSettings)
	if err != nil {
		return serverError(c)
	}

	h.Hub.Publish(profileID, notifications.Event{
		Table:   "expense_profiles",
		Kind:    notifications.ChangeUpdate,
		ActorID: userID,
	})

	return c.JSON(http.StatusOK, toProfileResponse(updated))
}

// ListMembers возвращает активных участников профиля.
func (h *SharingHandler) ListMembers(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profileID, ok, err := parseProfileID(c)
	if !ok {
		return err
	}

	if _, ok, err := resolveAccess(c, h.Members, profileID, userID); !ok {
		return err
	}

	members, err := h.Members.ListByProfile(c.Request().Context(), profileID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, MemberListResponse{Members: members})
}

// UpdateMember меняет роль и права участника. Владелец и админы.
func (h *SharingHandler) UpdateMember(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profileID, ok, err := parseProfileID(c)
	if !ok {
		return err
	}

	memberUserID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	access, ok, err := resolveAccess(c, h.Members, profileID, userID)
	if !ok {
		return err
	}
	if !access.canManage() {
		return forbidden(c)
	}

	var req UpdateMemberRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	role := models.Role(req.Role)
	permissions := defaultPermissionsFor(role)
	if req.Permissions != nil {
		permissions = *req.Permissions
	}

	if err := h.Members.UpdateRole(c.Request().Context(), profileID, memberUserID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "member not found")
		}
		return serverError(c)
	}

	if err := h.Members.UpdatePermissions(c.Request().Context(), profileID, memberUserID, permissions); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "member not found")
		}
		return serverError(c)
	}

	h.Hub.Publish(profileID, notifications.Event{
		Table:   "profile_members",
		Kind:    notifications.ChangeUpdate,
		ActorID: userID,
	})

	return c.NoContent(http.StatusNoContent)
}

// RemoveMember убирает участника из профиля. Владелец и админы могут
// удалять других, любой участник может выйти сам.
func (h *SharingHandler) RemoveMember(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profileID, ok, err := parseProfileID(c)
	if !ok {
		return err
	}

	memberUserID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return badRequest(c, "invalid user id")
	}

	access, ok, err := resolveAccess(c, h.Members, profileID, userID)
	if !ok {
		return err
	}
	if !access.canManage() && memberUserID != userID {
		return forbidden(c)
	}

	if err := h.Members.Remove(c.Request().Context(), profileID, memberUserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "member not found")
		}
		return serverError(c)
	}

	h.Hub.Publish(profileID, notifications.Event{
		Table:   "profile_members",
		Kind:    notifications.ChangeDelete,
		ActorID: userID,
	})

	return c.NoContent(http.StatusNoContent)
}

// ListInvitations возвращает приглашения профиля.
func (h *SharingHandler) ListInvitations(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profileID, ok, err := parseProfileID(c)
	if !ok {
		return err
	}

	access, ok, err := resolveAccess(c, h.Members, profileID, userID)
	if !ok {
		return err
	}
	if !access.Permissions.Invite {
		return forbidden(c)
	}

	invitations, err := h.Invitations.ListByProfile(c.Request().Context(), profileID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, InvitationListResponse{Invitations: invitations})
}

// CreateInvitation выпускает персональное приглашение и отправляет письмо.
// Сбой почты не отменяет приглашение: код остается рабочим.
func (h *SharingHandler) CreateInvitation(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profileID, ok, err := parseProfileID(c)
	if !ok {
		return err
	}

	access, ok, err := resolveAccess(c, h.Members, profileID, userID)
	if !ok {
		return err
	}
	if !access.Permissions.Invite {
		return forbidden(c)
	}

	var req CreateInvitationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := models.Role(req.Role)
	permissions := defaultPermissionsFor(role)
	if req.Permissions != nil {
		permissions = *req.Permissions
	}

	code, err := h.Codes.InvitationCode()
	if err != nil {
		return serverError(c)
	}

	expiresAt := time.Now().Add(h.InvitationTTL)
	invitation, err := h.Invitations.Create(c.Request().Context(), profileID, email, userID, role, permissions, code, normalizeName(req.Message), expiresAt)
	if err != nil {
		return serverError(c)
	}

	h.Hub.Publish(profileID, notifications.Event{
		Table:   "profile_invitations",
		Kind:    notifications.ChangeInsert,
		ActorID: userID,
	})

	h.sendInvitationMail(invitation, userID)

	return c.JSON(http.StatusCreated, InvitationResponse{Invitation: invitation})
}

// RevokeInvitation отзывает ожидающее приглашение.
func (h *SharingHandler) RevokeInvitation(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profileID, ok, err := parseProfileID(c)
	if !ok {
		return err
	}

	invitationID, err := uuid.Parse(c.Param("invitationId"))
	if err != nil {
		return badRequest(c, "invalid invitation id")
	}

	access, ok, err := resolveAccess(c, h.Members, profileID, userID)
	if !ok {
		return err
	}
	if !access.Permissions.Invite {
		return forbidden(c)
	}

	if err := h.Invitations.Revoke(c.Request().Context(), profileID, invitationID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "invitation not found")
		}
		return serverError(c)
	}

	h.Hub.Publish(profileID, notifications.Event{
		Table:   "profile_invitations",
		Kind:    notifications.ChangeDelete,
		ActorID: userID,
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *SharingHandler) sendInvitationMail(invitation models.ProfileInvitation, inviterID uuid.UUID) {
	if !h.Mail.Enabled() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		profile, err := h.Profiles.GetByID(ctx, invitation.ProfileID)
		if err != nil {
			h.Logger.Error("invitation mail skipped",
				slog.String("invitation_id", invitation.ID.String()),
				slog.String("error", err.Error()))
			return
		}

		inviterName := "A SpendShare user"
		if inviter, err := h.Users.GetByID(ctx, inviterID); err == nil {
			if inviter.FullName != nil && *inviter.FullName != "" {
				inviterName = *inviter.FullName
			} else {
				inviterName = inviter.Email
			}
		}

		err = h.Mail.SendInvitation(ctx, mailer.Invitation{
			Email:       invitation.InvitedEmail,
			ProfileName: profile.Name,
			InviterName: inviterName,
			Code:        invitation.InvitationCode,
			Message:     invitation.Message,
			ExpiresAt:   invitation.ExpiresAt,
		})
		if err != nil {
			h.Logger.Error("invitation mail failed",
				slog.String("invitation_id", invitation.ID.String()),
				slog.String("error", err.Error()))
		}
	}()
}

func defaultPermissionsFor(role models.Role) models.Permissions {
	if role == models.RoleAdmin {
		return models.Permissions{View: true, Edit: true, Delete: true, Invite: true}
	}
	return models.DefaultMemberPermissions()
}
