package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/spendshare/internal/auth"
	"example.com/spendshare/internal/models"
	"example.com/spendshare/internal/notifications"
	"example.com/spendshare/internal/repository"
	"example.com/spendshare/internal/sharing"
)

type JoinHandler struct {
	Invitations *repository.InvitationRepository
	Members     *repository.MemberRepository
	Hub         *notifications.Hub
}

// NewJoinHandler создает обработчик присоединения к профилям по кодам.
func NewJoinHandler(invitations *repository.InvitationRepository, members *repository.MemberRepository, hub *notifications.Hub) *JoinHandler {
	return &JoinHandler{
		Invitations: invitations,
		Members:     members,
		Hub:         hub,
	}
}

type JoinRequest struct {
	Code string `json:"code" validate:"required,min=4,max=32"`
}

type CodePreview struct {
	Kind        repository.CodeKind `json:"kind"`
	ProfileName string              `json:"profile_name"`
	ProfileType models.ProfileType  `json:"profile_type"`
	Currency    string              `json:"currency"`
	InviterName *string             `json:"inviter_name,omitempty"`
	Role        models.Role         `json:"role"`
	Permissions models.Permissions  `json:"permissions"`
}

type JoinResponse struct {
	Member    models.ProfileMember `json:"member"`
	ProfileID string               `json:"profile_id"`
}

// Resolve показывает, куда ведет код, не присоединяя пользователя.
func (h *JoinHandler) Resolve(c echo.Context) error {
	if _, ok := auth.UserIDFromContext(c); !ok {
		return unauthorized(c)
	}

	code := sharing.NormalizeCode(c.Param("code"))
	if code == "" {
		return badRequest(c, "invalid code")
	}

	resolution, ok, err := h.resolve(c, code)
	if !ok {
		return err
	}

	return c.JSON(http.StatusOK, toCodePreview(resolution))
}

// Join присоединяет пользователя к профилю по коду.
func (h *JoinHandler) Join(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req JoinRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	code := sharing.NormalizeCode(req.Code)

	resolution, ok, err := h.resolve(c, code)
	if !ok {
		return err
	}

	member, err := h.Members.Join(c.Request().Context(), resolution, userID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "already a member of this profile")
		}
		return serverError(c)
	}

	h.Hub.Publish(resolution.Profile.ID, notifications.Event{
		Table:   "profile_members",
		Kind:    notifications.ChangeInsert,
		ActorID: userID,
		Data:    member,
	})

	return c.JSON(http.StatusCreated, JoinResponse{
		Member:    member,
		ProfileID: resolution.Profile.ID.String(),
	})
}

// Decline отклоняет персональное приглашение, не присоединяясь.
func (h *JoinHandler) Decline(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req JoinRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	code := sharing.NormalizeCode(req.Code)

	resolution, ok, err := h.resolve(c, code)
	if !ok {
		return err
	}

	if resolution.Invitation == nil {
		return badRequest(c, "only personal invitations can be declined")
	}

	if err := h.Invitations.Decline(c.Request().Context(), resolution.Invitation.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "invitation not found")
		}
		return serverError(c)
	}

	h.Hub.Publish(resolution.Profile.ID, notifications.Event{
		Table:   "profile_invitations",
		Kind:    notifications.ChangeUpdate,
		ActorID: userID,
	})

	return c.NoContent(http.StatusNoContent)
}

// resolve разбирает код. При ok == false ответ об ошибке уже записан.
func (h *JoinHandler) resolve(c echo.Context, code string) (repository.CodeResolution, bool, error) {
	resolution, err := h.Invitations.ResolveCode(c.Request().Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return resolution, false, notFound(c, "code not found")
		case errors.Is(err, repository.ErrExpired):
			return resolution, false, c.JSON(http.StatusGone, map[string]string{"error": "invitation expired"})
		case errors.Is(err, repository.ErrInvalid):
			return resolution, false, badRequest(c, "invitation is no longer active")
		default:
			return resolution, false, serverError(c)
		}
	}

	return resolution, true, nil
}

func toCodePreview(resolution repository.CodeResolution) CodePreview {
	preview := CodePreview{
		Kind:        resolution.Kind,
		ProfileName: resolution.Profile.Name,
		ProfileType: resolution.Profile.Type,
		Currency:    resolution.Profile.Currency,
		InviterName: resolution.InviterName,
		Role:        models.RoleMember,
		Permissions: models.DefaultMemberPermissions(),
	}

	if resolution.Invitation != nil {
		preview.Role = resolution.Invitation.Role
		preview.Permissions = resolution.Invitation.Permissions
	}

	return preview
}
