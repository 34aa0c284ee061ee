package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestHubPublishSubscribe проверяет доставку событий подписчику.
func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	profileID := uuid.New()
	actorID := uuid.New()

	ch, unsubscribe := hub.Subscribe(profileID)
	defer unsubscribe()

	hub.Publish(profileID, Event{Table: "expenses", Kind: ChangeInsert, ActorID: actorID})

	select {
	case event := <-ch:
		if event.Table != "expenses" || event.Kind != ChangeInsert {
			t.Fatalf("unexpected event %+v", event)
		}
		if event.ProfileID != profileID {
			t.Fatalf("expected profile id %s, got %s", profileID, event.ProfileID)
		}
		if event.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be set")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event to be delivered")
	}
}

// TestHubScopesByProfile проверяет, что события не утекают в чужие профили.
func TestHubScopesByProfile(t *testing.T) {
	hub := NewHub()

	ch, unsubscribe := hub.Subscribe(uuid.New())
	defer unsubscribe()

	hub.Publish(uuid.New(), Event{Table: "budgets", Kind: ChangeUpdate})

	select {
	case event := <-ch:
		t.Fatalf("unexpected event %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestHubUnsubscribe проверяет закрытие канала после отписки.
func TestHubUnsubscribe(t *testing.T) {
	hub := NewHub()
	profileID := uuid.New()

	ch, unsubscribe := hub.Subscribe(profileID)
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed")
	}
}

// TestHubUnsubscribeTwice проверяет безопасность повторной отписки.
func TestHubUnsubscribeTwice(t *testing.T) {
	hub := NewHub()
	profileID := uuid.New()

	_, unsubscribe := hub.Subscribe(profileID)
	unsubscribe()
	unsubscribe()
}
