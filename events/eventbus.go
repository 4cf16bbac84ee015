package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"mmw/logx"
)

type SubscriberID string

type Subscriber struct {
	ID      SubscriberID
	Channel chan WalletEvent

	// proposal-scoped subscribers only see events for this proposal id
	proposalID uint64
	allEvents  bool
}

type EventBus struct {
	subscribers map[SubscriberID]*Subscriber
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[SubscriberID]*Subscriber),
	}
}

func (eb *EventBus) generateUUIDID() SubscriberID {
	id := uuid.Must(uuid.NewV7())
	return SubscriberID(id.String())
}

// Subscribe registers a subscriber for one proposal's events
func (eb *EventBus) Subscribe(proposalID uint64) (SubscriberID, chan WalletEvent) {
	return eb.subscribe(proposalID, false)
}

// SubscribeToAllEvents registers a subscriber for every wallet event
func (eb *EventBus) SubscribeToAllEvents() (SubscriberID, chan WalletEvent) {
	return eb.subscribe(0, true)
}

func (eb *EventBus) subscribe(proposalID uint64, allEvents bool) (SubscriberID, chan WalletEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := eb.generateUUIDID()

	ch := make(chan WalletEvent, 50) // Buffer for events
	eb.subscribers[id] = &Subscriber{
		ID:         id,
		Channel:    ch,
		proposalID: proposalID,
		allEvents:  allEvents,
	}

	logx.Info("EVENTBUS", fmt.Sprintf("Client subscribed to wallet events | subscriber_id=%s | total_subscribers=%d", id, len(eb.subscribers)))

	return id, ch
}

// Unsubscribe removes a subscription by ID
func (eb *EventBus) Unsubscribe(id SubscriberID) bool {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscriber, exists := eb.subscribers[id]
	if !exists {
		logx.Warn("EVENTBUS", fmt.Sprintf("Attempted to unsubscribe non-existent subscriber | subscriber_id=%s", id))
		return false
	}

	delete(eb.subscribers, id)
	close(subscriber.Channel)

	logx.Info("EVENTBUS", fmt.Sprintf("Client unsubscribed from events | subscriber_id=%s | remaining_subscribers=%d", id, len(eb.subscribers)))
	return true
}

// Publish delivers an event to all-event subscribers and to subscribers
// scoped to the event's proposal id. Full channels are skipped, never
// blocked on.
func (eb *EventBus) Publish(event WalletEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if len(eb.subscribers) == 0 {
		return
	}

	for id, subscriber := range eb.subscribers {
		if !subscriber.allEvents && subscriber.proposalID != event.ProposalID() {
			continue
		}
		select {
		case subscriber.Channel <- event:
			// Event sent successfully
		default:
			logx.Warn("EVENTBUS", fmt.Sprintf("Subscriber channel full | subscriber_id=%s | event_type=%s", id, event.Type()))
		}
	}
}

// GetTotalSubscriptions returns the total number of active subscriptions
func (eb *EventBus) GetTotalSubscriptions() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return len(eb.subscribers)
}

// HasSubscriber checks if a subscriber with the given ID exists
func (eb *EventBus) HasSubscriber(id SubscriberID) bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	_, exists := eb.subscribers[id]
	return exists
}
