package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/spendshare/internal/models"
)

func testContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// TestNormalizeName проверяет нормализацию отображаемого имени.
func TestNormalizeName(t *testing.T) {
	if normalizeName(nil) != nil {
		t.Fatal("expected nil for nil input")
	}

	empty := "   "
	if normalizeName(&empty) != nil {
		t.Fatal("expected nil for blank input")
	}

	padded := "  Alice  "
	got := normalizeName(&padded)
	if got == nil || *got != "Alice" {
		t.Fatalf("unexpected result %v", got)
	}
}

// TestDefaultPermissionsFor проверяет права по умолчанию для ролей.
func TestDefaultPermissionsFor(t *testing.T) {
	admin := defaultPermissionsFor(models.RoleAdmin)
	if !admin.View || !admin.Edit || !admin.Delete || !admin.Invite {
		t.Fatalf("unexpected admin permissions %+v", admin)
	}

	member := defaultPermissionsFor(models.RoleMember)
	if !member.View || member.Edit || member.Delete || member.Invite {
		t.Fatalf("unexpected member permissions %+v", member)
	}
}

// TestParseExpenseFields проверяет разбор суммы и даты расхода.
func TestParseExpenseFields(t *testing.T) {
	c, _ := testContext()

	req := ExpenseRequest{Amount: "42.50", Category: "food", ExpenseDate: "2024-06-01"}
	cents, date, ok, err := parseExpenseFields(c, req)
	if !ok || err != nil {
		t.Fatalf("expected success, got ok=%v err=%v", ok, err)
	}
	if cents != 4250 {
		t.Fatalf("expected 4250 cents, got %d", cents)
	}
	if date.Format(expenseDateLayout) != "2024-06-01" {
		t.Fatalf("unexpected date %s", date)
	}
}

// TestParseExpenseFieldsRejects проверяет отклонение неверных полей.
func TestParseExpenseFieldsRejects(t *testing.T) {
	cases := map[string]ExpenseRequest{
		"too precise":      {Amount: "12.345", Category: "food", ExpenseDate: "2024-06-01"},
		"negative":         {Amount: "-5", Category: "food", ExpenseDate: "2024-06-01"},
		"unknown category": {Amount: "10", Category: "crypto", ExpenseDate: "2024-06-01"},
		"bad date":         {Amount: "10", Category: "food", ExpenseDate: "06/01/2024"},
	}

	for name, req := range cases {
		c, rec := testContext()
		if _, _, ok, _ := parseExpenseFields(c, req); ok {
			t.Fatalf("%s: expected rejection", name)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
	}
}

// TestParseBudgetFieldsEndDate проверяет порядок дат бюджета.
func TestParseBudgetFieldsEndDate(t *testing.T) {
	end := "2024-01-01"
	req := BudgetRequest{
		Category:       "food",
		Amount:         "100",
		Period:         "monthly",
		AlertThreshold: 80,
		StartDate:      "2024-06-01",
		EndDate:        &end,
	}

	c, rec := testContext()
	if _, _, _, ok, _ := parseBudgetFields(c, req); ok {
		t.Fatal("expected rejection for end before start")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// TestWriteExpensesCSV проверяет формат CSV-выгрузки расходов.
func TestWriteExpensesCSV(t *testing.T) {
	description := "lunch"
	expenses := []models.Expense{
		{
			ID:            uuid.New(),
			ProfileID:     uuid.New(),
			UserID:        uuid.New(),
			AmountCents:   4250,
			Category:      "food",
			PaymentMethod: models.PaymentMethodCash,
			Description:   &description,
			ExpenseDate:   time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
			CreatedAt:     time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeExpensesCSV(writer, expenses); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	writer.Flush()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one record, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "42.50") {
		t.Fatalf("expected formatted amount in record: %s", lines[1])
	}
	if !strings.Contains(lines[1], "lunch") {
		t.Fatalf("expected description in record: %s", lines[1])
	}
}
