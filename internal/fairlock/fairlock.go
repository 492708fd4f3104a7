// Package fairlock provides a FIFO mutex: goroutines acquire it in the
// order they call Lock, unlike sync.Mutex which makes no ordering
// guarantee under contention. The embedded engine uses one instance per
// *Database to serialize transactions in arrival order, since an
// embedded connection allows only one writer at a time.
package fairlock

// FairLock is a ticket-based mutual exclusion lock.
type FairLock struct {
	tickets chan struct{}
}

// New returns a FairLock ready for use.
func New() *FairLock {
	f := &FairLock{tickets: make(chan struct{}, 1)}
	f.tickets <- struct{}{}
	return f
}

// Lock blocks until the caller is next in arrival order to hold the
// lock.
func (f *FairLock) Lock() {
	<-f.tickets
}

// Unlock releases the lock, waking the next waiter in arrival order.
func (f *FairLock) Unlock() {
	f.tickets <- struct{}{}
}
