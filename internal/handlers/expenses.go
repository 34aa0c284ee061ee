package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/spendshare/internal/auth"
	"example.com/spendshare/internal/models"
	"example.com/spendshare/internal/money"
	"example.com/spendshare/internal/notifications"
	"example.com/spendshare/internal/repository"
)

type ExpenseHandler struct {
	Expenses *repository.ExpenseRepository
	Members  *repository.MemberRepository
	Hub      *notifications.Hub
}

// NewExpenseHandler создает обработчик расходов.
func NewExpenseHandler(expenses *repository.ExpenseRepository, members *repository.MemberRepository, hub *notifications.Hub) *ExpenseHandler {
	return &ExpenseHandler{
		Expenses: expenses,
		Members:  members,
		Hub:      hub,
	}
}

type ExpenseRequest struct {
	Amount        string  `json:"amount" validate:"required"`
	Category      string  `json:"category" validate:"required"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=cash credit_card debit_card apple_pay google_pay"`
	Description   *string `json:"description" validate:"omitempty,max=500"`
	ExpenseDate   string  `json:"expense_date" validate:"required"`
}

type ExpenseResponse struct {
	Expense models.Expense `json:"expense"`
	Amount  string         `json:"amount"`
}

type ExpenseListResponse struct {
	Expenses []models.Expense `json:"expenses"`
}

const expenseDateLayout = "2006-01-02"

// List возвращает расходы профиля, свежие первыми.
func (h *ExpenseHandler) List(c echo.Context) error {
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

	// limit=0 снимает ограничение, по умолчанию последние 50 записей.
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return badRequest(c, "invalid limit")
		}
	}

	expenses, err := h.Expenses.ListByProfile(c.Request().Context(), profileID, limit)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, ExpenseListResponse{Expenses: expenses})
}

// Create добавляет расход в профиль.
func (h *ExpenseHandler) Create(c echo.Context) error {
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

	var req ExpenseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	amountCents, expenseDate, ok, err := parseExpenseFields(c, req)
	if !ok {
		return err
	}

	expense, err := h.Expenses.Create(c.Request().Context(), profileID, userID, amountCents, req.Category, models.PaymentMethod(req.PaymentMethod), normalizeName(req.Description), expenseDate)
	if err != nil {
		return serverError(c)
	}

	h.Hub.Publish(profileID, notifications.Event{
		Table:   "expenses",
		Kind:    notifications.ChangeInsert,
		ActorID: userID,
		Data:    expense,
	})

	return c.JSON(http.StatusCreated, toExpenseResponse(expense))
}

// Update обновляет расход профиля.
func (h *ExpenseHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenseID, err := uuid.Parse(c.Param("expenseId"))
	if err != nil {
		return badRequest(c, "invalid expense id")
	}

	existing, err := h.Expenses.GetByID(c.Request().Context(), expenseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "expense not found")
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

	var req ExpenseRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	amountCents, expenseDate, ok, err := parseExpenseFields(c, req)
	if !ok {
		return err
	}

	expense, err := h.Expenses.Update(c.Request().Context(), expenseID, amountCents, req.Category, models.PaymentMethod(req.PaymentMethod), normalizeName(req.Description), expenseDate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "expense not found")
		}
		return serverError(c)
	}

	h.Hub.Publish(existing.ProfileID, notifications.Event{
		Table:   "expenses",
		Kind:    notifications.ChangeUpdate,
		ActorID: userID,
		Data:    expense,
	})

	return c.JSON(http.StatusOK, toExpenseResponse(expense))
}

// Delete удаляет расход профиля.
func (h *ExpenseHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	expenseID, err := uuid.Parse(c.Param("expenseId"))
	if err != nil {
		return badRequest(c, "invalid expense id")
	}

	existing, err := h.Expenses.GetByID(c.Request().Context(), expenseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "expense not found")
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

	if err := h.Expenses.Delete(c.Request().Context(), expenseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "expense not found")
		}
		return serverError(c)
	}

	h.Hub.Publish(existing.ProfileID, notifications.Event{
		Table:   "expenses",
		Kind:    notifications.ChangeDelete,
		ActorID: userID,
	})

	return c.NoContent(http.StatusNoContent)
}

// parseExpenseFields разбирает сумму и дату. При ok == false ответ
// об ошибке уже записан, вызывающий возвращает err как есть.
func parseExpenseFields(c echo.Context, req ExpenseRequest) (int64, time.Time, bool, error) {
	amountCents, err := money.ParseAmount(req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, money.ErrTooPrecise):
			return 0, time.Time{}, false, badRequest(c, "amount has more than two decimal places")
		case errors.Is(err, money.ErrNotPositive):
			return 0, time.Time{}, false, badRequest(c, "amount must be greater than zero")
		default:
			return 0, time.Time{}, false, badRequest(c, "invalid amount")
		}
	}

	if !models.ValidCategory(req.Category) {
		return 0, time.Time{}, false, badRequest(c, "invalid category")
	}

	expenseDate, err := time.Parse(expenseDateLayout, req.ExpenseDate)
	if err != nil {
		return 0, time.Time{}, false, badRequest(c, "invalid expense date")
	}

	return amountCents, expenseDate, true, nil
}

func toExpenseResponse(expense models.Expense) ExpenseResponse {
	return ExpenseResponse{
		Expense: expense,
		Amount:  money.FormatCents(expense.AmountCents),
	}
}
