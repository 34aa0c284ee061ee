package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/spendshare/internal/auth"
	"example.com/spendshare/internal/models"
	"example.com/spendshare/internal/money"
	"example.com/spendshare/internal/notifications"
	"example.com/spendshare/internal/repository"
	"example.com/spendshare/internal/sharing"
)

type ProfileHandler struct {
	Profiles *repository.ProfileRepository
	Expenses *repository.ExpenseRepository
	Budgets  *repository.BudgetRepository
	Members  *repository.MemberRepository
	Codes    *sharing.Generator
	Hub      *notifications.Hub
}

// NewProfileHandler создает обработчик профилей расходов.
func NewProfileHandler(profiles *repository.ProfileRepository, expenses *repository.ExpenseRepository, budgets *repository.BudgetRepository, members *repository.MemberRepository, codes *sharing.Generator, hub *notifications.Hub) *ProfileHandler {
	return &ProfileHandler{
		Profiles: profiles,
		Expenses: expenses,
		Budgets:  budgets,
		Members:  members,
		Codes:    codes,
		Hub:      hub,
	}
}

type CreateProfileRequest struct {
	Name          string                `json:"name" validate:"required,max=100"`
	Type          string                `json:"type" validate:"required,oneof=personal family business split_expense"`
	Currency      string                `json:"currency" validate:"required,len=3,uppercase"`
	IsShared      bool                  `json:"is_shared"`
	ShareSettings *models.ShareSettings `json:"share_settings"`
}

type UpdateProfileSettingsRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Type     string `json:"type" validate:"required,oneof=personal family business split_expense"`
	Currency string `json:"currency" validate:"required,len=3,uppercase"`
}

type ProfileResponse struct {
	Profile      models.ExpenseProfile `json:"profile"`
	Balance      string                `json:"balance"`
	MonthlySpent string                `json:"monthly_spent"`
}

type JoinedProfile struct {
	Profile     models.ExpenseProfile `json:"profile"`
	OwnerEmail  string                `json:"owner_email"`
	OwnerName   *string               `json:"owner_name,omitempty"`
	Role        models.Role           `json:"role"`
	Permissions models.Permissions    `json:"permissions"`
}

type ProfileListResponse struct {
	Owned  []ProfileResponse `json:"owned"`
	Joined []JoinedProfile   `json:"joined"`
}

type SnapshotResponse struct {
	Snapshot repository.ProfileSnapshot `json:"snapshot"`
	Access   models.Permissions         `json:"access"`
	Role     models.Role                `json:"role"`
}

// List возвращает собственные и присоединенные профили пользователя.
func (h *ProfileHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	owned, err := h.Profiles.ListOwned(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	joined, err := h.Profiles.ListJoined(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	response := ProfileListResponse{
		Owned:  make([]ProfileResponse, 0, len(owned)),
		Joined: make([]JoinedProfile, 0, len(joined)),
	}

	for _, profile := range owned {
		response.Owned = append(response.Owned, toProfileResponse(profile))
	}

	for _, entry := range joined {
		response.Joined = append(response.Joined, JoinedProfile{
			Profile:     entry.Profile,
			OwnerEmail:  entry.OwnerEmail,
			OwnerName:   entry.OwnerName,
			Role:        entry.Role,
			Permissions: entry.Permissions,
		})
	}

	return c.JSON(http.StatusOK, response)
}

// Create создает профиль расходов для пользователя.
func (h *ProfileHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	var shareCode *string
	settings := req.ShareSettings
	if req.IsShared {
		code, err := h.Codes.ShareCode()
		if err != nil {
			return serverError(c)
		}
		shareCode = &code
		if settings == nil {
			settings = &models.ShareSettings{AllowView: true}
		}
	} else {
		settings = nil
	}

	profile, err := h.Profiles.Create(c.Request().Context(), userID, req.Name, models.ProfileType(req.Type), req.Currency, req.IsShared, shareCode, settings)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusCreated, toProfileResponse(profile))
}

// Get возвращает полный снимок профиля с правами текущего пользователя.
func (h *ProfileHandler) Get(c echo.Context) error {
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

	snapshot, err := h.Profiles.Snapshot(c.Request().Context(), profileID, h.Expenses, h.Budgets, h.Members)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, SnapshotResponse{
		Snapshot: snapshot,
		Access:   access.Permissions,
		Role:     access.Role,
	})
}

// Update меняет имя, тип и валюту профиля. Доступно только владельцу.
func (h *ProfileHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profileID, ok, err := parseProfileID(c)
	if !ok {
		return err
	}

	var req UpdateProfileSettingsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	profile, err := h.Profiles.Update(c.Request().Context(), userID, profileID, req.Name, models.ProfileType(req.Type), req.Currency)
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

	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// Delete удаляет профиль вместе с расходами и бюджетами. Только владелец.
func (h *ProfileHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	profileID, ok, err := parseProfileID(c)
	if !ok {
		return err
	}

	if err := h.Profiles.Delete(c.Request().Context(), userID, profileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "profile not found")
		}
		return serverError(c)
	}

	h.Hub.Publish(profileID, notifications.Event{
		Table:   "expense_profiles",
		Kind:    notifications.ChangeDelete,
		ActorID: userID,
	})

	return c.NoContent(http.StatusNoContent)
}

func toProfileResponse(profile models.ExpenseProfile) ProfileResponse {
	return ProfileResponse{
		Profile:      profile,
		Balance:      money.FormatCents(profile.BalanceCents),
		MonthlySpent: money.FormatCents(profile.MonthlySpentCents),
	}
}
