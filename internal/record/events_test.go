package record

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventsDispatchOrder(t *testing.T) {
	e := NewEvents()
	var got []string
	record := func(tag string) Listener {
		return ListenerFunc(func(ev *Event) { got = append(got, tag+":"+ev.Name) })
	}
	e.OnAny(record("any"))
	e.On(EventSavePre, record("first"))
	e.On(EventSavePre, record("second"))
	e.On(EventDeletePre, record("other"))

	e.Publish(&Event{Name: EventSavePre})
	assert.Equal(t, []string{"first:save.pre", "second:save.pre", "any:save.pre"}, got)
}

func TestEventsCloneIsolation(t *testing.T) {
	e := NewEvents()
	var orig, copied int
	e.On(EventFindPost, ListenerFunc(func(*Event) { orig++ }))

	c := e.clone()
	c.On(EventFindPost, ListenerFunc(func(*Event) { copied++ }))

	e.Publish(&Event{Name: EventFindPost})
	assert.Equal(t, 1, orig)
	assert.Equal(t, 0, copied)

	c.Publish(&Event{Name: EventFindPost})
	assert.Equal(t, 2, orig)
	assert.Equal(t, 1, copied)
}

func TestEventsConcurrentRegistration(t *testing.T) {
	e := NewEvents()
	var mu sync.Mutex
	var calls int
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.On(EventSavePost, ListenerFunc(func(*Event) {
				mu.Lock()
				calls++
				mu.Unlock()
			}))
			e.Publish(&Event{Name: EventDeletePost})
		}()
	}
	wg.Wait()

	e.Publish(&Event{Name: EventSavePost})
	assert.Equal(t, 16, calls)
}
