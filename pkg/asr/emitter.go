// ABOUTME: Listener registry for results and status events
// ABOUTME: Calls listeners in registration order outside the registry lock
package asr

import "sync"

// ListenerID identifies a registered listener for Off
type ListenerID uint64

type resultListener struct {
	id ListenerID
	fn func(Result)
}

type statusListener struct {
	id ListenerID
	fn func(Status)
}

type emitter struct {
	mu       sync.RWMutex
	nextID   ListenerID
	results  []resultListener
	statuses []statusListener
}

// OnResult registers fn for every received result
func (e *emitter) OnResult(fn func(Result)) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.results = append(e.results, resultListener{id: e.nextID, fn: fn})
	return e.nextID
}

// OnStatus registers fn for status events
func (e *emitter) OnStatus(fn func(Status)) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.statuses = append(e.statuses, statusListener{id: e.nextID, fn: fn})
	return e.nextID
}

// Off removes a listener and reports whether it was registered
func (e *emitter) Off(id ListenerID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, l := range e.results {
		if l.id == id {
			e.results = append(e.results[:i:i], e.results[i+1:]...)
			return true
		}
	}
	for i, l := range e.statuses {
		if l.id == id {
			e.statuses = append(e.statuses[:i:i], e.statuses[i+1:]...)
			return true
		}
	}
	return false
}

func (e *emitter) emitResult(r Result) {
	e.mu.RLock()
	listeners := e.results
	e.mu.RUnlock()

	for _, l := range listeners {
		l.fn(r)
	}
}

func (e *emitter) emitStatus(s Status) {
	e.mu.RLock()
	listeners := e.statuses
	e.mu.RUnlock()

	for _, l := range listeners {
		l.fn(s)
	}
}
