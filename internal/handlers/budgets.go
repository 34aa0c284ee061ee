package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/spendshare/internal/auth"
	"example.com/spendshare/internal/models"
	"example.com/spendshare/internal/money"
	"example.com/spendshare/internal/notifications"
	"example.com/spendshare/internal/repository"
)

type BudgetHandler struct {
	Budgets *repository.BudgetRepository
	Members *repository.MemberRepository
	Hub     *notifications.Hub
}

// NewBudgetHandler создает обработчик бюджетов.
func NewBudgetHandler(budgets *repository.BudgetRepository, members *repository.MemberRepository, hub *notifications.Hub) *BudgetHandler {
	return &BudgetHandler{
		Budgets: budgets,
		Members: members,
		Hub:     hub,
	}
}

type BudgetRequest struct {
	Category       string  `json:"category" validate:"required"`
	Amount         string  `json:"amount" validate:"required"`
	Period         string  `json:"period" validate:"required,oneof=weekly monthly yearly"`
	AlertThreshold int     `json:"alert_threshold" validate:"required,min=1,max=100"`
	StartDate      string  `json:"start_date" validate:"required"`
	EndDate        *string `json:"end_date"`
}

type BudgetResponse struct {
	Budget models.Budget `json:"budget"`
	Amount string        `json:"amount"`
}

type BudgetListResponse struct {
	Budgets []models.Budget `json:"budgets"`
}

// List возвращает бюджеты профиля.
func (h *BudgetHandler) List(c echo.Context) error {
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

	budgets, err := h.Budgets.ListByProfile(c.Request().Context(), profileID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, BudgetListResponse{Budgets: budgets})
}

// Create создает бюджет категории в профиле.
func (h *BudgetHandler) Create(c echo.Context) error {
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
	if !access.Permissions.Edit {
		return forbidden(c)
	}

	var req BudgetRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	amountCents, startDate, endDate, ok, err := parseBudgetFields(c, req)
	if !ok {
		return err
	}

	budget, err := h.Budgets.Create(c.Request().Context(), profileID, req.Category, amountCents, models.BudgetPeriod(req.Period), req.AlertThreshold, startDate, endDate)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "budget already exists for this category")
		}
		return serverError(c)
	}

	h.Hub.Publish(profileID, notifications.Event{
		Table:   "budgets",
		Kind:    notifications.ChangeInsert,
		ActorID: userID,
		Data:    budget,
	})

	return c.JSON(http.StatusCreated, toBudgetResponse(budget))
}

// Update обновляет параметры бюджета.
func (h *BudgetHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	budgetID, err := uuid.Parse(c.Param("budgetId"))
	if err != nil {
		return badRequest(c, "invalid budget id")
	}

	existing, err := h.Budgets.GetByID(c.Request().Context(), budgetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "budget not found")
		}
		return serverError(c)
	}

	access, ok, err := resolveAccess(c, h.Members, existing.ProfileID, userID)
	if !ok {
		return err
	}
	if !access.Permissions.Edit {
		return forbidden(c)
	}

	var req BudgetRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	amountCents, startDate, endDate, ok, err := parseBudgetFields(c, req)
	if !ok {
		return err
	}

	budget, err := h.Budgets.Update(c.Request().Context(), budgetID, amountCents, models.BudgetPeriod(req.Period), req.AlertThreshold, startDate, endDate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "budget not found")
		}
		return serverError(c)
	}

	h.Hub.Publish(existing.ProfileID, notifications.Event{
		Table:   "budgets",
		Kind:    notifications.ChangeUpdate,
		ActorID: userID,
		Data:    budget,
	})

	return c.JSON(http.StatusOK, toBudgetResponse(budget))
}

// Delete удаляет бюджет.
func (h *BudgetHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	budgetID, err := uuid.Parse(c.Param("budgetId"))
	if err != nil {
		return badRequest(c, "invalid budget id")
	}

	existing, err := h.Budgets.GetByID(c.Request().Context(), budgetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "budget not found")
		}
		return serverError(c)
	}

	access, ok, err := resolveAccess(c, h.Members, existing.ProfileID, userID)
	if !ok {
		return err
	}
	if !access.Permissions.Delete {
		return forbidden(c)
	}

	if err := h.Budgets.Delete(c.Request().Context(), budgetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "budget not found")
		}
		return serverError(c)
	}

	h.Hub.Publish(existing.ProfileID, notifications.Event{
		Table:   "budgets",
		Kind:    notifications.ChangeDelete,
		ActorID: userID,
	})

	return c.NoContent(http.StatusNoContent)
}

// parseBudgetFields разбирает сумму и даты бюджета. При ok == false
// ответ об ошибке уже записан.
func parseBudgetFields(c echo.Context, req BudgetRequest) (int64, time.Time, *time.Time, bool, error) {
	amountCents, err := money.ParseAmount(req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, money.ErrTooPrecise):
			return 0, time.Time{}, nil, false, badRequest(c, "amount has more than two decimal places")
		case errors.Is(err, money.ErrNotPositive):
			return 0, time.Time{}, nil, false, badRequest(c, "amount must be greater than zero")
		default:
			return 0, time.Time{}, nil, false, badRequest(c, "invalid amount")
		}
	}

	if !models.ValidCategory(req.Category) {
		return 0, time.Time{}, nil, false, badRequest(c, "invalid category")
	}

	startDate, err := time.Parse(expenseDateLayout, req.StartDate)
	if err != nil {
		return 0, time.Time{}, nil, false, badRequest(c, "invalid start date")
	}

	var endDate *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		parsed, err := time.Parse(expenseDateLayout, *req.EndDate)
		if err != nil {
			return 0, time.Time{}, nil, false, badRequest(c, "invalid end date")
		}
		if !parsed.After(startDate) {
			return 0, time.Time{}, nil, false, badRequest(c, "end date must be after start date")
		}
		endDate = &parsed
	}

	return amountCents, startDate, endDate, true, nil
}

func toBudgetResponse(budget models.Budget) BudgetResponse {
	return BudgetResponse{
		Budget: budget,
		Amount: money.FormatCents(budget.AmountCents),
	}
}
