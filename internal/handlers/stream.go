package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/spendshare/internal/auth"
	"example.com/spendshare/internal/realtime"
	"example.com/spendshare/internal/repository"
)

type StreamHandler struct {
	Factory *realtime.Factory
	Members *repository.MemberRepository
}

// NewStreamHandler создает SSE-обработчик живых снимков профиля.
func NewStreamHandler(factory *realtime.Factory, members *repository.MemberRepository) *StreamHandler {
	return &StreamHandler{
		Factory: factory,
		Members: members,
	}
}

type SnapshotFrame struct {
	ProfileID  string      `json:"profile_id"`
	Snapshot   interface{} `json:"snapshot"`
	Generation uint64      `json:"generation"`
	Notify     bool        `json:"notify"`
	Table      string      `json:"table,omitempty"`
	Kind       string      `json:"kind,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Stream открывает SSE-поток снимков профиля. Каждое чужое изменение
// доставляется как полный свежий снимок, не как отдельный payload.
func (h *StreamHandler) Stream(c echo.Context) error {
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

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return serverError(c)
	}

	ctx := c.Request().Context()

	reconciler := h.Factory.ForViewer(userID)
	defer reconciler.UnsubscribeAll()

	updates := make(chan realtime.Update, 8)
	reconciler.Subscribe(ctx, profileID, func(update realtime.Update) {
		select {
		case updates <- update:
		case <-ctx.Done():
		}
	})

	initial, err := h.Factory.Snapshot(ctx, profileID)
	if err != nil {
		return nil
	}

	if err := writeSSE(c, "snapshot", SnapshotFrame{
		ProfileID: profileID.String(),
		Snapshot:  initial,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return nil
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			frame := SnapshotFrame{
				ProfileID:  update.ProfileID.String(),
				Snapshot:   update.Snapshot,
				Generation: update.Generation,
				Notify:     update.Notify,
				Table:      update.Event.Table,
				Kind:       string(update.Event.Kind),
				Timestamp:  update.Event.Timestamp,
			}
			if err := writeSSE(c, "snapshot", frame); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeSSE(c echo.Context, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := c.Response().Write([]byte("event: " + eventType + "\n")); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: " + string(data) + "\n\n")); err != nil {
		return err
	}

	return nil
}
