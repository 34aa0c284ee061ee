package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Mailer отправляет письма-приглашения через Resend-совместимый API.
// Выключенный клиент молча пропускает отправку.
type Mailer struct {
	enabled     bool
	apiKey      string
	baseURL     string
	sender      string
	joinBaseURL string
	httpClient  *http.Client
}

// Invitation — данные для письма-приглашения в профиль.
type Invitation struct {
	Email       string
	ProfileName string
	InviterName string
	Code        string
	Message     *string
	ExpiresAt   time.Time
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	Message string `json:"message,omitempty"`
}

// New создает почтовый клиент с заданными параметрами.
func New(enabled bool, apiKey, baseURL, sender, joinBaseURL string, timeout time.Duration) *Mailer {
	trimmedURL := strings.TrimRight(baseURL, "/")
	return &Mailer{
		enabled:     enabled,
		apiKey:      apiKey,
		baseURL:     trimmedURL,
		sender:      sender,
		joinBaseURL: joinBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled сообщает, настроена ли отправка писем.
func (m *Mailer) Enabled() bool {
	return m.enabled
}

// SendInvitation отправляет письмо с кодом приглашения.
func (m *Mailer) SendInvitation(ctx context.Context, invitation Invitation) error {
	if !m.enabled {
		return nil
	}

	if strings.TrimSpace(m.apiKey) == "" {
		return errors.New("mail api key is missing")
	}

	reqBody := sendRequest{
		From:    m.sender,
		To:      []string{invitation.Email},
		Subject: fmt.Sprintf("%s invited you to %q", invitation.InviterName, invitation.ProfileName),
		HTML:    invitationHTML(invitation, m.joinLink(invitation.Code)),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/emails", m.baseURL)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	request.Header.Set("Authorization", "Bearer "+m.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := m.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		var apiErr sendResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("mail api error: %s", apiErr.Message)
		}
		return fmt.Errorf("mail api error: %s", strings.TrimSpace(string(body)))
	}

	return nil
}

func (m *Mailer) joinLink(code string) string {
	return m.joinBaseURL + "?" + url.Values{"code": {code}}.Encode()
}

func invitationHTML(invitation Invitation, joinLink string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<p>%s invited you to the expense profile <b>%s</b>.</p>",
		html.EscapeString(invitation.InviterName), html.EscapeString(invitation.ProfileName))

	if invitation.Message != nil && strings.TrimSpace(*invitation.Message) != "" {
		fmt.Fprintf(&b, "<blockquote>%s</blockquote>", html.EscapeString(*invitation.Message))
	}

	fmt.Fprintf(&b, "<p>Your invitation code: <b>%s</b></p>", html.EscapeString(invitation.Code))
	fmt.Fprintf(&b, `<p><a href="%s">Join the profile</a></p>`, joinLink)
	fmt.Fprintf(&b, "<p>The invitation expires on %s.</p>", invitation.ExpiresAt.Format("January 2, 2006"))

	return b.String()
}
