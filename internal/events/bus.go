// Package events is the process-local notification channel between the till
// services. Topics are a closed set; each carries one payload type.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Topic names a notification kind.
type Topic string

const (
	TopicDraftQueued      Topic = "draft.queued"
	TopicDraftCompleted   Topic = "draft.completed"
	TopicTillOpened       Topic = "till.opened"
	TopicTillClosed       Topic = "till.closed"
	TopicTillSwitched     Topic = "till.switched"
	TopicCustomerReset    Topic = "customer.reset"
	TopicDraftItemsLoaded Topic = "draft.items_loaded"
)

var topics = map[Topic]struct{}{
	TopicDraftQueued:      {},
	TopicDraftCompleted:   {},
	TopicTillOpened:       {},
	TopicTillClosed:       {},
	TopicTillSwitched:     {},
	TopicCustomerReset:    {},
	TopicDraftItemsLoaded: {},
}

// Valid reports whether t is one of the known topics.
func (t Topic) Valid() bool {
	_, ok := topics[t]
	return ok
}

// Event is a notification payload.
type Event interface {
	Topic() Topic
}

type DraftQueued struct {
	TillID  string
	DraftID string
}

type DraftCompleted struct {
	TillID  string
	DraftID string
}

type TillOpened struct {
	TillID    string
	Warehouse string
}

type TillClosed struct {
	TillID string
}

// TillSwitched is published when the cashier moves from one till to another.
// From is empty when no till was active.
type TillSwitched struct {
	From string
	To   string
}

type CustomerReset struct {
	TillID string
}

// DraftItemsLoaded follows a resume: the cart now mirrors the draft.
type DraftItemsLoaded struct {
	TillID  string
	DraftID string
	Lines   int
	Paid    bool
}

func (DraftQueued) Topic() Topic      { return TopicDraftQueued }
func (DraftCompleted) Topic() Topic   { return TopicDraftCompleted }
func (TillOpened) Topic() Topic       { return TopicTillOpened }
func (TillClosed) Topic() Topic       { return TopicTillClosed }
func (TillSwitched) Topic() Topic     { return TopicTillSwitched }
func (CustomerReset) Topic() Topic    { return TopicCustomerReset }
func (DraftItemsLoaded) Topic() Topic { return TopicDraftItemsLoaded }

// Handler receives an event. Handlers must tolerate events that change
// nothing for them.
type Handler func(Event)

// Publisher is what services depend on to announce changes.
type Publisher interface {
	Publish(Event)
}

// NoopPublisher discards all events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) {}

// Bus delivers events synchronously to every subscriber of the topic.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[uint64]Handler
	nextID uint64
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[Topic]map[uint64]Handler),
		logger: logger,
	}
}

// Subscribe registers h for topic and returns the function that removes it.
// Calling the returned function more than once is safe.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	if !topic.Valid() || h == nil {
		b.logger.Warn("ignoring subscription", zap.String("topic", string(topic)))
		return func() {}
	}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to the current subscribers in the calling goroutine. A
// panicking handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(e Event) {
	if e == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Topic()]))
	for _, h := range b.subs[e.Topic()] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(e, h)
	}
}

func (b *Bus) deliver(e Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", string(e.Topic())),
				zap.Any("panic", r),
			)
		}
	}()
	h(e)
}

// Subscribers returns the number of handlers registered for topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
