/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package model

import (
	"sync"

	"gorm.io/gorm"
)

type RunEvent struct {
	Type       string
	ResourceId string
}

type Model struct {
	db *gorm.DB

	mu             sync.RWMutex
	runSubscribers []chan RunEvent
}

func New(db *gorm.DB) *Model {
	return &Model{
		db:             db,
		runSubscribers: make([]chan RunEvent, 0),
	}
}

// SubscribeRunEvents registers a run history subscriber. The caller must
// release it with UnsubscribeRunEvents when done.
func (m *Model) SubscribeRunEvents() <-chan RunEvent {
	ch := make(chan RunEvent, 10)

	m.mu.Lock()
	m.runSubscribers = append(m.runSubscribers, ch)
	m.mu.Unlock()

	return ch
}

// UnsubscribeRunEvents removes the subscriber and closes its channel.
// Unknown channels are ignored.
func (m *Model) UnsubscribeRunEvents(events <-chan RunEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.runSubscribers {
		if sub == events {
			m.runSubscribers = append(m.runSubscribers[:i], m.runSubscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// notifyRunEvent fans the event out to all subscribers. Delivery is
// best effort, a slow subscriber drops events instead of blocking the
// request goroutine.
func (m *Model) notifyRunEvent(eventType string, resourceId string) {
	event := RunEvent{Type: eventType, ResourceId: resourceId}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.runSubscribers {
		select {
		case sub <- event:
		default:
		}
	}
}
