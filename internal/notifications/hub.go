package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Event описывает одно изменение строки в таблице профиля.
type Event struct {
	Table     string      `json:"table"`
	Kind      ChangeKind  `json:"kind"`
	ProfileID uuid.UUID   `json:"profile_id"`
	ActorID   uuid.UUID   `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Event]struct{}
}

// NewHub создает брокер событий изменений по профилям.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe подписывает на события профиля и возвращает канал и функцию отписки.
func (h *Hub) Subscribe(profileID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	defer h.mu.Unlock()

	profileSubs, ok := h.subscribers[profileID]
	if !ok {
		profileSubs = make(map[chan Event]struct{})
		h.subscribers[profileID] = profileSubs
	}
	profileSubs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if subs, exists := h.subscribers[profileID]; exists {
			if _, member := subs[ch]; !member {
				return
			}
			delete(subs, ch)
			if len(subs) == 0 {
				delete(h.subscribers, profileID)
			}
			close(ch)
		}
	}
}

// Publish рассылает событие всем подписчикам профиля.
func (h *Hub) Publish(profileID uuid.UUID, event Event) {
	event.ProfileID = profileID
	event.Timestamp = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.subscribers[profileID]
	if !ok {
		return
	}

	for ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}
