package auth

import (
	"context"
	"sync"

	"github.com/hitoshi/nimart/internal/cookie"
)

// EventType は認証状態変化の種別。
type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// Event は認証状態変化イベント。
// Cookiesはイベントを発生させたリクエストのCookie入出力先。
type Event struct {
	Type    EventType
	Session *Session // サインアウト時はnil
	Cookies cookie.Jar
}

// Listener は認証状態変化を受け取るオブザーバー。
type Listener interface {
	OnAuthStateChange(ctx context.Context, ev Event)
}

// ListenerFunc は関数をListenerとして使うためのアダプタ。
type ListenerFunc func(ctx context.Context, ev Event)

// OnAuthStateChange はListenerを実装する。
func (f ListenerFunc) OnAuthStateChange(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Dispatcher は認証状態変化イベントを購読者に配信する。
// 配信は発行順に直列化され、リスナーが並行に呼び出されることはない。
// リスナーの中からPublishを呼んではならない（デッドロックする）。
type Dispatcher struct {
	deliverMu sync.Mutex

	mu     sync.Mutex
	nextID uint64
	subs   []subscriber
}

type subscriber struct {
	id       uint64
	listener Listener
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscription は購読のハンドル。Unsubscribeで購読を解除する。
type Subscription struct {
	d    *Dispatcher
	id   uint64
	once sync.Once
}

// Subscribe はリスナーを登録する。登録順に呼び出される。
func (d *Dispatcher) Subscribe(l Listener) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	d.subs = append(d.subs, subscriber{id: d.nextID, listener: l})
	return &Subscription{d: d, id: d.nextID}
}

// Unsubscribe は購読を解除する。複数回呼んでも安全。
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.d.mu.Lock()
		defer s.d.mu.Unlock()
		for i, sub := range s.d.subs {
			if sub.id == s.id {
				s.d.subs = append(s.d.subs[:i], s.d.subs[i+1:]...)
				return
			}
		}
	})
}

// Publish はイベントを全リスナーに同期的に配信し、配信したリスナー数を返す。
// 別のPublishが配信中の場合は完了を待ってから配信する。
func (d *Dispatcher) Publish(ctx context.Context, ev Event) int {
	d.deliverMu.Lock()
	defer d.deliverMu.Unlock()

	d.mu.Lock()
	listeners := make([]Listener, len(d.subs))
	for i, sub := range d.subs {
		listeners[i] = sub.listener
	}
	d.mu.Unlock()

	for _, l := range listeners {
		l.OnAuthStateChange(ctx, ev)
	}
	return len(listeners)
}

// Len は現在の購読者数を返す。
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
