package harness

import (
	"sync"

	"github.com/emirpasic/gods/v2/queues/linkedlistqueue"
)

// Future sammelt Wartende bis zur naechsten Aufloesung. Wartende werden in
// Ankunftsreihenfolge bedient, jeder genau einmal.
type Future[T any] struct {
	mu      sync.Mutex
	waiters *linkedlistqueue.Queue[chan T]
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{waiters: linkedlistqueue.New[chan T]()}
}

// Wait registriert einen Wartenden. Der Kanal ist gepuffert, Resolve
// blockiert also nie, auch wenn niemand mehr liest.
func (f *Future[T]) Wait() <-chan T {
	ch := make(chan T, 1)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.waiters.Enqueue(ch)
	return ch
}

// Resolve liefert v an alle bisher registrierten Wartenden und gibt deren
// Anzahl zurueck. Spaeter registrierte warten auf das naechste Resolve.
func (f *Future[T]) Resolve(v T) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for {
		ch, ok := f.waiters.Dequeue()
		if !ok {
			return n
		}
		ch <- v
		close(ch)
		n++
	}
}

// Pending gibt die Anzahl offener Wartender zurueck
func (f *Future[T]) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waiters.Size()
}
