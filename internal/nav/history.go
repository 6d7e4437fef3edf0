// Package nav carries the navigation signals shared by the page shell
// and the controllers: route constants and the back-navigation
// broadcaster.
package nav

import "sync"

// Route constants for the employee pages.
const (
	RouteBills   = "#employee/bills"
	RouteNewBill = "#employee/bill/new"
)

// Navigate is the callback components invoke to move to another route.
type Navigate func(route string)

// History broadcasts back-navigation signals to its subscribers. A
// subscription is scoped: the returned release function removes it and
// is safe to call more than once.
type History struct {
	mu   sync.Mutex
	subs map[int]func()
	next int
}

// NewHistory creates an empty back-signal broadcaster.
func NewHistory() *History {
	return &History{subs: make(map[int]func())}
}

// OnBack registers fn to run on every back signal and returns the
// release function that removes the registration.
func (h *History) OnBack(fn func()) (release func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Back delivers a back signal to every live subscriber.
func (h *History) Back() {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// SubscriberCount reports the number of live registrations.
func (h *History) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
