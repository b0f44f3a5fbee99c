// Package handlers queuing.go holds outbound signaling messages that did not fit
// in a connection's send buffer, so roster events are never dropped or reordered.
package handlers

import (
	"fmt"
	"sync"
)

type MessageQueue struct {
	mu       sync.Mutex
	messages map[string][][]byte // map of participant ID to pending messages
	limit    int
}

// NewMessageQueue returns a queue holding at most limit messages per
// participant; zero means unbounded.
func NewMessageQueue(limit int) *MessageQueue {
	return &MessageQueue{
		messages: make(map[string][][]byte),
		limit:    limit,
	}
}

func (mq *MessageQueue) Enqueue(clientID string, message []byte) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.limit > 0 && len(mq.messages[clientID]) >= mq.limit {
		return fmt.Errorf("queue for client %s is full (%d messages)", clientID, mq.limit)
	}
	mq.messages[clientID] = append(mq.messages[clientID], message)
	return nil
}

// DequeueAll removes and returns every pending message for clientID, oldest first.
func (mq *MessageQueue) DequeueAll(clientID string) [][]byte {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	messages := mq.messages[clientID]
	delete(mq.messages, clientID)
	return messages
}

func (mq *MessageQueue) QueueSize(clientID string) int {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	return len(mq.messages[clientID])
}

func (mq *MessageQueue) ClearQueue(clientID string) {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	delete(mq.messages, clientID)
}
