// Package core provides the fundamental building blocks of the quern
// persistence layer. This file defines lifecycle events emitted by
// engines and transactions.
package core

import (
	"sync"
	"time"
)

// Event represents a lifecycle event emitted by the persistence layer.
//
// Events are triggered when queries execute and when transactions commit
// or roll back. They allow users to register custom handlers to observe
// what the engine does.
type Event string

const (
	// EventQuery is emitted after a query string executes.
	EventQuery Event = "query"
	// EventCommit is emitted after a transaction commits.
	EventCommit Event = "commit"
	// EventRollback is emitted after a transaction rolls back.
	EventRollback Event = "rollback"
)

// EventHandler defines the callback signature for event listeners.
// The payload argument varies with the event type (QueryPayload,
// CommitPayload, RollbackPayload).
type EventHandler func(payload any)

// EventDispatcher manages a list of event handlers and dispatches them
// when the corresponding events are emitted.
type EventDispatcher struct {
	mutex       sync.RWMutex
	handlerList map[Event][]EventHandler
}

// globalDispatcher is the shared event dispatcher used by all engines.
var globalDispatcher = &EventDispatcher{
	handlerList: make(map[Event][]EventHandler),
}

// On registers an EventHandler for a specific Event.
//
// Example:
//
//	core.On(core.EventRollback, func(payload any) {
//	    if p, ok := payload.(core.RollbackPayload); ok {
//	        log.Printf("transaction rolled back: %s", p.TransactionID)
//	    }
//	})
func On(event Event, handler EventHandler) {
	globalDispatcher.mutex.Lock()
	defer globalDispatcher.mutex.Unlock()
	globalDispatcher.handlerList[event] = append(globalDispatcher.handlerList[event], handler)
}

// Emit triggers all registered handlers for the given Event.
//
// Handlers are executed asynchronously in separate goroutines.
func Emit(event Event, payload any) {
	globalDispatcher.mutex.RLock()
	defer globalDispatcher.mutex.RUnlock()
	if hs, ok := globalDispatcher.handlerList[event]; ok {
		for _, h := range hs {
			go h(payload)
		}
	}
}

// QueryPayload is the payload passed to EventQuery handlers.
type QueryPayload struct {
	SQL           string
	Elapsed       time.Duration
	InTransaction bool
	Err           error
}

// CommitPayload is the payload passed to EventCommit handlers.
type CommitPayload struct {
	TransactionID string
}

// RollbackPayload is the payload passed to EventRollback handlers.
type RollbackPayload struct {
	TransactionID string
}
