package realtime

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/spendshare/internal/notifications"
)

func collectUpdate(t *testing.T, updates <-chan Update) Update {
	t.Helper()

	select {
	case update := <-updates:
		return update
	case <-time.After(time.Second):
		t.Fatal("expected an update to be delivered")
		return Update{}
	}
}

func expectNoUpdate(t *testing.T, updates <-chan Update) {
	t.Helper()

	select {
	case update := <-updates:
		t.Fatalf("unexpected update %+v", update)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestSubscribeIdempotent проверяет, что повторная подписка не дублирует доставку.
func TestSubscribeIdempotent(t *testing.T) {
	hub := notifications.NewHub()
	viewerID := uuid.New()
	profileID := uuid.New()

	var fetches atomic.Int64
	fetch := func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return fetches.Add(1), nil
	}

	reconciler := NewFactory(hub, fetch, slog.Default()).ForViewer(viewerID)
	defer reconciler.UnsubscribeAll()

	updates := make(chan Update, 8)
	onUpdate := func(u Update) { updates <- u }

	reconciler.Subscribe(context.Background(), profileID, onUpdate)
	reconciler.Subscribe(context.Background(), profileID, onUpdate)

	if state := reconciler.SubscriptionState(profileID); state != StateSubscribed {
		t.Fatalf("expected subscribed state, got %s", state)
	}

	hub.Publish(profileID, notifications.Event{Table: "expenses", Kind: notifications.ChangeInsert, ActorID: uuid.New()})

	collectUpdate(t, updates)
	expectNoUpdate(t, updates)
}

// TestUnsubscribeAllStopsDelivery проверяет, что после teardown события не приходят.
func TestUnsubscribeAllStopsDelivery(t *testing.T) {
	hub := notifications.NewHub()
	profileA := uuid.New()
	profileB := uuid.New()

	fetch := func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return "snapshot", nil
	}

	reconciler := NewFactory(hub, fetch, slog.Default()).ForViewer(uuid.New())

	updates := make(chan Update, 8)
	onUpdate := func(u Update) { updates <- u }

	reconciler.Subscribe(context.Background(), profileA, onUpdate)
	reconciler.Subscribe(context.Background(), profileB, onUpdate)
	reconciler.UnsubscribeAll()

	hub.Publish(profileA, notifications.Event{Table: "expenses", Kind: notifications.ChangeInsert})
	hub.Publish(profileB, notifications.Event{Table: "budgets", Kind: notifications.ChangeUpdate})

	expectNoUpdate(t, updates)

	if state := reconciler.SubscriptionState(profileA); state != StateUnsubscribed {
		t.Fatalf("expected unsubscribed state, got %s", state)
	}
}

// TestOwnChangesSuppressNotify проверяет фильтрацию собственных изменений.
func TestOwnChangesSuppressNotify(t *testing.T) {
	hub := notifications.NewHub()
	viewerID := uuid.New()
	profileID := uuid.New()

	fetch := func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return "snapshot", nil
	}

	reconciler := NewFactory(hub, fetch, slog.Default()).ForViewer(viewerID)
	defer reconciler.UnsubscribeAll()

	updates := make(chan Update, 8)
	reconciler.Subscribe(context.Background(), profileID, func(u Update) { updates <- u })

	hub.Publish(profileID, notifications.Event{Table: "expenses", Kind: notifications.ChangeInsert, ActorID: viewerID})

	own := collectUpdate(t, updates)
	if own.Notify {
		t.Fatal("expected own change to suppress notify")
	}
	if own.Snapshot != "snapshot" {
		t.Fatalf("expected re-fetch to run for own change, got %v", own.Snapshot)
	}

	hub.Publish(profileID, notifications.Event{Table: "expenses", Kind: notifications.ChangeInsert, ActorID: uuid.New()})

	foreign := collectUpdate(t, updates)
	if !foreign.Notify {
		t.Fatal("expected foreign change to notify")
	}
}

// TestStaleFetchDropped проверяет, что отставший ответ не затирает свежий.
func TestStaleFetchDropped(t *testing.T) {
	hub := notifications.NewHub()
	profileID := uuid.New()

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})

	var calls atomic.Int64
	fetch := func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		if calls.Add(1) == 1 {
			close(firstStarted)
			<-releaseFirst
			return "stale", nil
		}
		return "fresh", nil
	}

	reconciler := NewFactory(hub, fetch, slog.Default()).ForViewer(uuid.New())
	defer reconciler.UnsubscribeAll()

	updates := make(chan Update, 8)
	reconciler.Subscribe(context.Background(), profileID, func(u Update) { updates <- u })

	hub.Publish(profileID, notifications.Event{Table: "expenses", Kind: notifications.ChangeInsert})
	<-firstStarted
	hub.Publish(profileID, notifications.Event{Table: "expenses", Kind: notifications.ChangeUpdate})

	fresh := collectUpdate(t, updates)
	if fresh.Snapshot != "fresh" {
		t.Fatalf("expected fresh snapshot first, got %v", fresh.Snapshot)
	}

	close(releaseFirst)
	expectNoUpdate(t, updates)
}

// TestUnsubscribeSingleProfile проверяет, что закрывается только один канал.
func TestUnsubscribeSingleProfile(t *testing.T) {
	hub := notifications.NewHub()
	profileA := uuid.New()
	profileB := uuid.New()

	fetch := func(ctx context.Context, id uuid.UUID) (interface{}, error) {
		return "snapshot", nil
	}

	reconciler := NewFactory(hub, fetch, slog.Default()).ForViewer(uuid.New())
	defer reconciler.UnsubscribeAll()

	updates := make(chan Update, 8)
	onUpdate := func(u Update) { updates <- u }

	reconciler.Subscribe(context.Background(), profileA, onUpdate)
	reconciler.Subscribe(context.Background(), profileB, onUpdate)
	reconciler.Unsubscribe(profileA)

	hub.Publish(profileA, notifications.Event{Table: "expenses", Kind: notifications.ChangeInsert})
	expectNoUpdate(t, updates)

	hub.Publish(profileB, notifications.Event{Table: "expenses", Kind: notifications.ChangeInsert})
	update := collectUpdate(t, updates)
	if update.ProfileID != profileB {
		t.Fatalf("expected update for %s, got %s", profileB, update.ProfileID)
	}
}
