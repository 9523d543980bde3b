package record

import (
	"sync"

	"arec/internal/dblib"
)

// Event names published around each operation. Each operation publishes its
// .pre event before the statement runs and its .post event after it
// succeeded; a failed operation never publishes .post.
const (
	EventFindPre      = "find.pre"
	EventFindPost     = "find.post"
	EventFindByPkPre  = "findByPk.pre"
	EventFindByPkPost = "findByPk.post"
	EventSavePre      = "save.pre"
	EventSavePost     = "save.post"
	EventDeletePre    = "delete.pre"
	EventDeletePost   = "delete.post"
)

// Event is passed to listeners. For find events Statement is set on .pre and
// may be modified to change what is executed. save.pre and delete.pre carry
// no statement: it is built after they return, so those listeners change
// the record's fields instead. Every .post event carries the executed
// statement. Result is only set for find .post events.
type Event struct {
	Name      string
	Record    *Record
	Statement dblib.Statement
	Result    []*Record
}

// Listener observes record events.
type Listener interface {
	HandleEvent(ev *Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev *Event)

func (f ListenerFunc) HandleEvent(ev *Event) { f(ev) }

// Events holds the listeners of one or more records. Dispatch is synchronous
// and follows registration order; listeners registered with OnAny run after
// the listeners registered for the specific event name.
type Events struct {
	mu       sync.RWMutex
	handlers map[string][]Listener
	any      []Listener
}

func NewEvents() *Events {
	return &Events{handlers: make(map[string][]Listener)}
}

// On registers l for the named event.
func (e *Events) On(name string, l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[name] = append(e.handlers[name], l)
}

// OnAny registers l for every event.
func (e *Events) OnAny(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.any = append(e.any, l)
}

// Publish delivers ev to the registered listeners.
func (e *Events) Publish(ev *Event) {
	e.mu.RLock()
	named := append([]Listener(nil), e.handlers[ev.Name]...)
	all := append([]Listener(nil), e.any...)
	e.mu.RUnlock()

	for _, l := range named {
		l.HandleEvent(ev)
	}
	for _, l := range all {
		l.HandleEvent(ev)
	}
}

// clone copies the listener table so that registrations on the copy do not
// leak back to the original.
func (e *Events) clone() *Events {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c := NewEvents()
	for name, ls := range e.handlers {
		c.handlers[name] = append([]Listener(nil), ls...)
	}
	c.any = append([]Listener(nil), e.any...)
	return c
}
