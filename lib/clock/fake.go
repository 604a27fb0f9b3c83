// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock for tests. Time does not pass on its own; it
// advances only when the test calls Advance or Set. Waiters created by
// After and NewTicker fire in deadline order during Advance, so a test
// can step through snapshot intervals deterministically.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter

	// signals wakes goroutines blocked in WaitForTimers whenever the
	// waiter list grows.
	signals []chan struct{}
}

// fakeWaiter is one pending After channel or ticker tick. A ticker has
// period > 0 and reschedules itself after firing; an After waiter is
// removed once fired.
type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
	period   time.Duration
	stopped  bool
}

// Fake returns a FakeClock starting at a fixed, arbitrary instant.
// Use FakeAt to pick the starting instant.
func Fake() *FakeClock {
	return FakeAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

// FakeAt returns a FakeClock whose current time is start.
func FakeAt(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake current time.
func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set jumps the clock to t without firing any waiters. Use Advance to
// fire them.
func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// After returns a channel that receives once the clock has been
// advanced past d. If d <= 0 the channel receives immediately.
func (f *FakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- f.now
		return ch
	}
	f.addWaiter(&fakeWaiter{deadline: f.now.Add(d), ch: ch})
	return ch
}

// NewTicker returns a Ticker that fires each time the clock advances
// past another multiple of d. Panics if d <= 0, matching time.NewTicker.
func (f *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	w := &fakeWaiter{deadline: f.now.Add(d), ch: make(chan time.Time, 1), period: d}
	f.addWaiter(w)
	return &Ticker{
		C: w.ch,
		stopFunc: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			w.stopped = true
			f.removeWaiter(w)
		},
		resetFunc: func(nd time.Duration) {
			if nd <= 0 {
				panic("clock: non-positive interval for Reset")
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			if w.stopped {
				return
			}
			w.period = nd
			w.deadline = f.now.Add(nd)
		},
	}
}

// Sleep blocks until the clock has been advanced by at least d. Some
// other goroutine must call Advance or the call never returns.
func (f *FakeClock) Sleep(d time.Duration) {
	<-f.After(d)
}

// Advance moves the clock forward by d, firing every waiter whose
// deadline falls within the window in deadline order. Tickers fire
// once per elapsed period and reschedule themselves.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.now.Add(d)
	for {
		w := f.earliestWaiter(target)
		if w == nil {
			break
		}
		f.now = w.deadline
		// Non-blocking send: a ticker whose consumer is behind drops
		// the tick, matching time.Ticker.
		select {
		case w.ch <- w.deadline:
		default:
		}
		if w.period > 0 {
			w.deadline = w.deadline.Add(w.period)
		} else {
			f.removeWaiter(w)
		}
	}
	f.now = target
}

// earliestWaiter returns the pending waiter with the earliest deadline
// at or before target, or nil. Caller holds f.mu.
func (f *FakeClock) earliestWaiter(target time.Time) *fakeWaiter {
	var earliest *fakeWaiter
	for _, w := range f.waiters {
		if w.deadline.After(target) {
			continue
		}
		if earliest == nil || w.deadline.Before(earliest.deadline) {
			earliest = w
		}
	}
	return earliest
}

// addWaiter appends w and wakes WaitForTimers callers. Caller holds f.mu.
func (f *FakeClock) addWaiter(w *fakeWaiter) {
	f.waiters = append(f.waiters, w)
	for _, ch := range f.signals {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// removeWaiter deletes w from the waiter list. Caller holds f.mu.
func (f *FakeClock) removeWaiter(w *fakeWaiter) {
	for i, cand := range f.waiters {
		if cand == w {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			return
		}
	}
}

// PendingCount reports how many waiters (After channels plus live
// tickers) are registered. Useful for asserting that a component shut
// down its ticker.
func (f *FakeClock) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.waiters)
}

// WaitForTimers blocks until at least n waiters are registered, then
// returns their deadlines in ascending order. It lets a test wait for
// a goroutine under test to reach its After or NewTicker call before
// advancing the clock, without sleeping.
func (f *FakeClock) WaitForTimers(n int) []time.Time {
	f.mu.Lock()
	for len(f.waiters) < n {
		ch := make(chan struct{}, 1)
		f.signals = append(f.signals, ch)
		f.mu.Unlock()
		<-ch
		f.mu.Lock()
		f.removeSignal(ch)
	}
	deadlines := make([]time.Time, len(f.waiters))
	for i, w := range f.waiters {
		deadlines[i] = w.deadline
	}
	f.mu.Unlock()

	sort.Slice(deadlines, func(i, j int) bool { return deadlines[i].Before(deadlines[j]) })
	return deadlines
}

// removeSignal deletes ch from the signal list. Caller holds f.mu.
func (f *FakeClock) removeSignal(ch chan struct{}) {
	for i, cand := range f.signals {
		if cand == ch {
			f.signals = append(f.signals[:i], f.signals[i+1:]...)
			return
		}
	}
}
