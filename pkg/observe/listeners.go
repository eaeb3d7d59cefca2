package observe

import "sync"

// Listeners is a subscription list for state snapshots of type T.
type Listeners[T any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(T)
	order  []int
}

// Subscribe registers fn and returns a function that removes it again.
func (l *Listeners[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	l.order = append(l.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

// Notify calls every listener, in subscription order, with v.
// Listeners run on the caller's goroutine without the registry lock held.
func (l *Listeners[T]) Notify(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of active listeners.
func (l *Listeners[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

func (l *Listeners[T]) remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.fns, id)
	for i, existing := range l.order {
		if existing == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}
