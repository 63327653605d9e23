package session

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// EventType - тип события сессии.
type EventType string

const (
	// EventView - изменился отображаемый список.
	EventView EventType = "view"
	// EventURL - состояние записано в URL; клиент делает pushState.
	EventURL EventType = "url"
	// EventComments - изменились комментарии поста.
	EventComments EventType = "comments"
)

// Event - уведомление подписчику.
type Event struct {
	Type   EventType
	Query  string
	PostID int
}

// subscriber - очередь событий одного подписчика.
// События не теряются: повторные EventView и EventComments одного поста
// схлопываются в последнее, EventURL доставляются все и по порядку.
type subscriber struct {
	out  chan Event
	wake chan struct{}
	done chan struct{}
	stop sync.Once

	mu    sync.Mutex
	queue []Event
}

func newSubscriber() *subscriber {
	return &subscriber{
		out:  make(chan Event),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (s *subscriber) push(ev Event) {
	s.mu.Lock()
	if ev.Type != EventURL {
		s.queue = slices.DeleteFunc(s.queue, func(q Event) bool {
			return q.Type == ev.Type && q.PostID == ev.PostID
		})
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump доставляет очередь в out и закрывает out после close.
func (s *subscriber) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) close() { s.stop.Do(func() { close(s.done) }) }

// observer хранит подписчиков сессии.
type observer struct {
	mu sync.RWMutex
	//   map[subscriberID] subscriber
	subs   map[string]*subscriber
	closed bool
}

func newObserver() *observer {
	return &observer{subs: make(map[string]*subscriber)}
}

// subscribe регистрирует подписчика; канал закрывается при отмене ctx или закрытии сессии.
func (o *observer) subscribe(ctx context.Context) <-chan Event {
	sub := newSubscriber()
	go sub.pump()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		sub.close()
		return sub.out
	}
	subID := uuid.NewString()
	o.subs[subID] = sub
	o.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		select {
		case <-ctx.Done():
		case <-sub.done:
			return
		}
		o.mu.Lock()
		delete(o.subs, subID)
		o.mu.Unlock()
		sub.close()
	}()

	return sub.out
}

func (o *observer) publish(ev Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, sub := range o.subs {
		sub.push(ev)
	}
}

func (o *observer) close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closed = true
	for id, sub := range o.subs {
		delete(o.subs, id)
		sub.close()
	}
}
