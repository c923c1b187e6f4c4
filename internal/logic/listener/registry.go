package listener

import (
	"reflect"
	"sync"
)

// Observer is notified of detection outcomes.
type Observer interface {
	// OnDetected is called with the decoded code and its symbology.
	OnDetected(code, symbology string)
	// OnNotDetected is called when a single image held no code.
	OnNotDetected()
}

// FuncObserver adapts plain functions to Observer. Nil fields are skipped.
type FuncObserver struct {
	Detected    func(code, symbology string)
	NotDetected func()
}

func (f *FuncObserver) OnDetected(code, symbology string) {
	if f.Detected != nil {
		f.Detected(code, symbology)
	}
}

func (f *FuncObserver) OnNotDetected() {
	if f.NotDetected != nil {
		f.NotDetected()
	}
}

// Registry is an insertion-ordered list of observers. It does not own
// them: an owner must Unregister an observer before discarding it.
type Registry struct {
	mu        sync.Mutex
	observers []Observer
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends o. The same observer may be registered more than once.
func (r *Registry) Register(o Observer) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Unregister removes the first entry equal to o. It is a no-op if o is
// not registered.
func (r *Registry) Unregister(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.observers {
		if same(cur, o) {
			r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.observers)
}

// NotifyDetected calls OnDetected on every observer in registration order.
// A panicking observer is not recovered and stops the fan-out.
func (r *Registry) NotifyDetected(code, symbology string) {
	for _, o := range r.snapshot() {
		o.OnDetected(code, symbology)
	}
}

// NotifyNotDetected calls OnNotDetected on every observer in registration
// order.
func (r *Registry) NotifyNotDetected() {
	for _, o := range r.snapshot() {
		o.OnNotDetected()
	}
}

// snapshot lets observers register or unregister from inside a callback.
func (r *Registry) snapshot() []Observer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Observer(nil), r.observers...)
}

// same compares observers by value: == for comparable dynamic types, deep
// equality for the others (== would panic on them).
func same(a, b Observer) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}
