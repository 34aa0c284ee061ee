package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/spendshare/internal/auth"
	"example.com/spendshare/internal/models"
	"example.com/spendshare/internal/money"
)

const timeLayout = time.RFC3339

type ExpenseExport struct {
	ProfileID string           `json:"profile_id"`
	Expenses  []models.Expense `json:"expenses"`
}

// ExportJSON выгружает расходы профиля в JSON-файл.
func (h *ExpenseHandler) ExportJSON(c echo.Context) error {
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

	expenses, err := h.Expenses.ListByProfile(c.Request().Context(), profileID, 0)
	if err != nil {
		return serverError(c)
	}

	export := ExpenseExport{
		ProfileID: profileID.String(),
		Expenses:  expenses,
	}

	filename := "expenses-" + profileID.String() + ".json"
	c.Response().Header().Set(echo.HeaderContentType, "application/json")
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.JSON(http.StatusOK, export)
}

// ExportCSV выгружает расходы профиля в CSV-файл.
func (h *ExpenseHandler) ExportCSV(c echo.Context) error {
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

	expenses, err := h.Expenses.ListByProfile(c.Request().Context(), profileID, 0)
	if err != nil {
		return serverError(c)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writeExpensesCSV(writer, expenses); err != nil {
		return serverError(c)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	filename := "expenses-" + profileID.String() + ".csv"
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func writeExpensesCSV(writer *csv.Writer, expenses []models.Expense) error {
	header := []string{
		"expense_id",
		"profile_id",
		"user_id",
		"amount",
		"amount_cents",
		"category",
		"payment_method",
		"description",
		"expense_date",
		"created_at",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, expense := range expenses {
		description := ""
		if expense.Description != nil {
			description = *expense.Description
		}

		record := []string{
			expense.ID.String(),
			expense.ProfileID.String(),
			expense.UserID.String(),
			money.FormatCents(expense.AmountCents),
			strconv.FormatInt(expense.AmountCents, 10),
			expense.Category,
			string(expense.PaymentMethod),
			description,
			expense.ExpenseDate.Format(expenseDateLayout),
			expense.CreatedAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return nil
}
