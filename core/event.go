// Package core provides the fundamental building blocks of the mango ODM.
// It defines abstractions for queries, documents, schema handling, events,
// and drivers.
package core

import "sync"

// Event represents a lifecycle event that can be emitted by the ODM.
//
// Events are triggered during insert, update, delete, and find operations.
// They allow users to register custom handlers to observe or react to changes
// in the persistence layer.
type Event string

const (
	// EventInsert is emitted after a document is inserted.
	EventInsert Event = "insert"
	// EventUpdate is emitted after documents are updated.
	EventUpdate Event = "update"
	// EventDelete is emitted after documents are deleted.
	EventDelete Event = "delete"
	// EventFind is emitted after documents are retrieved.
	EventFind Event = "find"
)

// EventHandler defines the callback signature for event listeners.
// The payload argument varies depending on the event type (InsertPayload,
// UpdatePayload, DeletePayload, FindPayload).
type EventHandler func(payload any)

// EventDispatcher manages a list of event handlers and dispatches them
// when the corresponding events are emitted.
type EventDispatcher struct {
	mutex       sync.RWMutex
	handlerList map[Event][]EventHandler
}

// globalDispatcher is the shared event dispatcher used by the ODM.
//
// It provides a global subscription and emission mechanism for events.
var globalDispatcher = &EventDispatcher{
	handlerList: make(map[Event][]EventHandler),
}

// On registers an EventHandler for a specific Event.
//
// Example:
//
//	On(core.EventInsert, func(payload any) {
//	    if p, ok := payload.(core.InsertPayload); ok {
//	        log.Printf("%s inserted: %v", p.Schema.Name, p.Doc.PrimaryValue())
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
// The payload type depends on the event being emitted.
func Emit(event Event, payload any) {
	globalDispatcher.mutex.RLock()
	defer globalDispatcher.mutex.RUnlock()
	if hs, ok := globalDispatcher.handlerList[event]; ok {
		for _, h := range hs {
			go h(payload)
		}
	}
}

// InsertPayload represents the payload passed to EventInsert handlers.
//
// It contains the schema and the inserted document.
type InsertPayload struct {
	Schema *Schema
	Doc    *Document
}

// UpdatePayload represents the payload passed to EventUpdate handlers.
//
// It contains the schema, the condition used for the update, and the applied changes.
type UpdatePayload struct {
	Schema    *Schema
	Condition *Condition
	Changes   Changes
}

// DeletePayload represents the payload passed to EventDelete handlers.
//
// It contains the schema and the condition that matched the deleted documents.
type DeletePayload struct {
	Schema    *Schema
	Condition *Condition
}

// FindPayload represents the payload passed to EventFind handlers.
//
// It contains the schema, the effective query envelope, and the documents
// retrieved.
type FindPayload struct {
	Schema *Schema
	Where  *Where
	Docs   []*Document
}
