package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestSendInvitationDisabled проверяет, что выключенный клиент не отправляет письма.
func TestSendInvitationDisabled(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	m := New(false, "key", server.URL, "Test <test@example.com>", "http://localhost/join", time.Second)

	err := m.SendInvitation(context.Background(), Invitation{Email: "user@example.com"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if called {
		t.Fatal("expected no request to be sent")
	}
}

// TestSendInvitation проверяет формат запроса к почтовому API.
func TestSendInvitation(t *testing.T) {
	var got sendRequest
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := New(true, "secret", server.URL, "SpendShare <invites@spendshare.app>", "http://localhost/join", time.Second)

	err := m.SendInvitation(context.Background(), Invitation{
		Email:       "user@example.com",
		ProfileName: "Family",
		InviterName: "Alice",
		Code:        "ABCD2345EFGH",
		ExpiresAt:   time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if auth != "Bearer secret" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
	if len(got.To) != 1 || got.To[0] != "user@example.com" {
		t.Fatalf("unexpected recipients %v", got.To)
	}
	if !strings.Contains(got.HTML, "ABCD2345EFGH") {
		t.Fatalf("expected code in body, got %q", got.HTML)
	}
	if !strings.Contains(got.HTML, "code=ABCD2345EFGH") {
		t.Fatalf("expected join link in body, got %q", got.HTML)
	}
}

// TestSendInvitationAPIError проверяет обработку ошибки почтового API.
func TestSendInvitationAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(sendResponse{Message: "invalid sender"})
	}))
	defer server.Close()

	m := New(true, "secret", server.URL, "bad", "http://localhost/join", time.Second)

	err := m.SendInvitation(context.Background(), Invitation{Email: "user@example.com"})
	if err == nil || !strings.Contains(err.Error(), "invalid sender") {
		t.Fatalf("expected api error, got %v", err)
	}
}
