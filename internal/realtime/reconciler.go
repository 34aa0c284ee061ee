// Package realtime согласует состояние просмотра профиля с изменениями,
// которые вносят другие участники. Каждое событие трактуется как сигнал
// инвалидации: слушатель не применяет payload, а перечитывает снимок
// профиля целиком и заменяет состояние последней версией.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"example.com/spendshare/internal/notifications"
)

type State string

const (
	StateUnsubscribed State = "unsubscribed"
	StateSubscribing  State = "subscribing"
	StateSubscribed   State = "subscribed"
)

// FetchFunc перечитывает полный снимок профиля.
type FetchFunc func(ctx context.Context, profileID uuid.UUID) (interface{}, error)

// Update несет свежий снимок после согласования одного события.
type Update struct {
	ProfileID  uuid.UUID
	Event      notifications.Event
	Snapshot   interface{}
	Generation uint64
	// Notify false для собственных изменений зрителя: перечитывание
	// выполняется, но уведомление не показывается.
	Notify bool
}

// UpdateFunc вызывается на каждый согласованный снимок.
type UpdateFunc func(Update)

// Factory создает реестры подписок с общими зависимостями.
type Factory struct {
	hub    *notifications.Hub
	fetch  FetchFunc
	logger *slog.Logger
}

// NewFactory создает фабрику реестров с общим хабом и функцией чтения.
func NewFactory(hub *notifications.Hub, fetch FetchFunc, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{hub: hub, fetch: fetch, logger: logger}
}

// Snapshot перечитывает снимок профиля напрямую, без подписки.
func (f *Factory) Snapshot(ctx context.Context, profileID uuid.UUID) (interface{}, error) {
	return f.fetch(ctx, profileID)
}

// ForViewer создает реестр подписок для одного зрителя.
func (f *Factory) ForViewer(viewerID uuid.UUID) *Reconciler {
	return &Reconciler{
		hub:      f.hub,
		fetch:    f.fetch,
		logger:   f.logger,
		viewerID: viewerID,
		subs:     make(map[uuid.UUID]*subscription),
	}
}

// Reconciler держит по одному логическому каналу на профиль.
// Владелец обязан вызвать UnsubscribeAll при завершении работы.
type Reconciler struct {
	hub      *notifications.Hub
	fetch    FetchFunc
	logger   *slog.Logger
	viewerID uuid.UUID

	mu   sync.Mutex
	subs map[uuid.UUID]*subscription
}

type subscription struct {
	profileID uuid.UUID
	cancelHub func()
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	stateMu sync.Mutex
	state   State

	// deliverMu упорядочивает применение снимков: побеждает только
	// наибольшая генерация, отставший ответ отбрасывается.
	deliverMu  sync.Mutex
	appliedGen uint64
}

// Subscribe открывает канал для профиля. Повторный вызов для того же
// профиля сначала закрывает предыдущий канал, дублирования доставки нет.
func (r *Reconciler) Subscribe(ctx context.Context, profileID uuid.UUID, onUpdate UpdateFunc) {
	r.mu.Lock()
	if existing, ok := r.subs[profileID]; ok {
		existing.teardown()
		delete(r.subs, profileID)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		profileID: profileID,
		ctx:       subCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StateSubscribing,
	}
	ch, cancelHub := r.hub.Subscribe(profileID)
	sub.cancelHub = cancelHub
	sub.setState(StateSubscribed)
	r.subs[profileID] = sub
	r.mu.Unlock()

	go r.run(sub, ch, onUpdate)
}

// Unsubscribe закрывает канал ровно для одного профиля.
func (r *Reconciler) Unsubscribe(profileID uuid.UUID) {
	r.mu.Lock()
	sub, ok := r.subs[profileID]
	if ok {
		delete(r.subs, profileID)
	}
	r.mu.Unlock()

	if ok {
		sub.teardown()
		<-sub.done
	}
}

// UnsubscribeAll закрывает все открытые каналы, используется при teardown.
func (r *Reconciler) UnsubscribeAll() {
	r.mu.Lock()
	subs := make([]*subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.subs = make(map[uuid.UUID]*subscription)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.teardown()
		<-sub.done
	}
}

// SubscriptionState возвращает состояние канала профиля.
func (r *Reconciler) SubscriptionState(profileID uuid.UUID) State {
	r.mu.Lock()
	sub, ok := r.subs[profileID]
	r.mu.Unlock()

	if !ok {
		return StateUnsubscribed
	}
	return sub.currentState()
}

func (r *Reconciler) run(sub *subscription, ch <-chan notifications.Event, onUpdate UpdateFunc) {
	defer close(sub.done)
	defer sub.setState(StateUnsubscribed)

	var issuedGen uint64
	var pending sync.WaitGroup
	defer pending.Wait()

	for {
		select {
		case <-sub.ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				if sub.ctx.Err() != nil {
					return
				}
				// Канал умер: логируем и оставляем подписку мертвой
				// до следующего Subscribe, ретраев нет.
				r.logger.Error("change feed closed",
					slog.String("profile_id", sub.profileID.String()))
				r.forget(sub)
				return
			}

			issuedGen++
			gen := issuedGen
			pending.Add(1)
			go func(event notifications.Event, gen uint64) {
				defer pending.Done()
				r.reconcile(sub, event, gen, onUpdate)
			}(event, gen)
		}
	}
}

func (r *Reconciler) reconcile(sub *subscription, event notifications.Event, gen uint64, onUpdate UpdateFunc) {
	snapshot, err := r.fetch(sub.ctx, sub.profileID)
	if err != nil {
		if sub.ctx.Err() != nil {
			return
		}
		r.logger.Error("profile re-fetch failed",
			slog.String("profile_id", sub.profileID.String()),
			slog.String("error", err.Error()))
		return
	}

	sub.deliverMu.Lock()
	defer sub.deliverMu.Unlock()

	if gen <= sub.appliedGen {
		return
	}
	sub.appliedGen = gen

	onUpdate(Update{
		ProfileID:  sub.profileID,
		Event:      event,
		Snapshot:   snapshot,
		Generation: gen,
		Notify:     event.ActorID != r.viewerID,
	})
}

func (r *Reconciler) forget(sub *subscription) {
	r.mu.Lock()
	if current, ok := r.subs[sub.profileID]; ok && current == sub {
		delete(r.subs, sub.profileID)
	}
	r.mu.Unlock()
}

func (s *subscription) teardown() {
	s.cancel()
	if s.cancelHub != nil {
		s.cancelHub()
	}
	s.setState(StateUnsubscribed)
}

func (s *subscription) setState(state State) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

func (s *subscription) currentState() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}
