// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	c := FakeAt(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Errorf("Now() = %v, want %v", got, epoch)
	}

	c.Advance(3 * time.Second)
	if got := c.Now(); !got.Equal(epoch.Add(3 * time.Second)) {
		t.Errorf("Now() after Advance = %v, want %v", got, epoch.Add(3*time.Second))
	}
}

func TestFakeClockSet(t *testing.T) {
	c := FakeAt(epoch)
	later := epoch.Add(48 * time.Hour)
	c.Set(later)
	if got := c.Now(); !got.Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", got, later)
	}
}

func TestFakeClockAfter(t *testing.T) {
	c := FakeAt(epoch)
	ch := c.After(10 * time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	c.Advance(9 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}

	c.Advance(time.Second)
	select {
	case fired := <-ch:
		if want := epoch.Add(10 * time.Second); !fired.Equal(want) {
			t.Errorf("After delivered %v, want %v", fired, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	c := FakeAt(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
	select {
	case <-c.After(-time.Second):
	default:
		t.Fatal("After(-1s) did not fire immediately")
	}
}

func TestFakeClockAdvanceFiresInDeadlineOrder(t *testing.T) {
	c := FakeAt(epoch)
	late := c.After(20 * time.Second)
	early := c.After(5 * time.Second)

	c.Advance(30 * time.Second)

	var a, b time.Time
	select {
	case a = <-early:
	default:
		t.Fatal("early waiter did not fire")
	}
	select {
	case b = <-late:
	default:
		t.Fatal("late waiter did not fire")
	}
	if !a.Before(b) {
		t.Errorf("fire times out of order: early %v, late %v", a, b)
	}
}

func TestFakeClockTicker(t *testing.T) {
	c := FakeAt(epoch)
	tk := c.NewTicker(time.Minute)
	defer tk.Stop()

	// One Advance spanning several periods delivers at most one tick
	// because C is buffered with capacity 1 and undrained ticks drop.
	c.Advance(3 * time.Minute)
	select {
	case got := <-tk.C:
		if want := epoch.Add(time.Minute); !got.Equal(want) {
			t.Errorf("first tick %v, want %v", got, want)
		}
	default:
		t.Fatal("ticker did not tick")
	}

	// Draining between advances yields one tick per period.
	c.Advance(time.Minute)
	select {
	case got := <-tk.C:
		if want := epoch.Add(4 * time.Minute); !got.Equal(want) {
			t.Errorf("next tick %v, want %v", got, want)
		}
	default:
		t.Fatal("ticker did not tick after drain")
	}
}

func TestFakeClockTickerStop(t *testing.T) {
	c := FakeAt(epoch)
	tk := c.NewTicker(time.Second)
	if got := c.PendingCount(); got != 1 {
		t.Fatalf("PendingCount() = %d, want 1", got)
	}

	tk.Stop()
	if got := c.PendingCount(); got != 0 {
		t.Errorf("PendingCount() after Stop = %d, want 0", got)
	}

	c.Advance(5 * time.Second)
	select {
	case <-tk.C:
		t.Error("stopped ticker ticked")
	default:
	}
}

func TestFakeClockTickerReset(t *testing.T) {
	c := FakeAt(epoch)
	tk := c.NewTicker(time.Hour)
	defer tk.Stop()

	tk.Reset(time.Minute)
	c.Advance(time.Minute)
	select {
	case got := <-tk.C:
		if want := epoch.Add(time.Minute); !got.Equal(want) {
			t.Errorf("tick after Reset %v, want %v", got, want)
		}
	default:
		t.Fatal("ticker did not tick at reset interval")
	}
}

func TestFakeClockSleep(t *testing.T) {
	c := FakeAt(epoch)

	var wg sync.WaitGroup
	woke := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Sleep(10 * time.Second)
		close(woke)
	}()

	c.WaitForTimers(1)
	select {
	case <-woke:
		t.Fatal("Sleep returned before Advance")
	default:
	}

	c.Advance(10 * time.Second)
	wg.Wait()
	select {
	case <-woke:
	default:
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	c := FakeAt(epoch)

	go func() {
		c.After(2 * time.Second)
		c.After(time.Second)
	}()

	deadlines := c.WaitForTimers(2)
	if len(deadlines) != 2 {
		t.Fatalf("WaitForTimers returned %d deadlines, want 2", len(deadlines))
	}
	if !deadlines[0].Before(deadlines[1]) {
		t.Errorf("deadlines not ascending: %v, %v", deadlines[0], deadlines[1])
	}
	if want := epoch.Add(time.Second); !deadlines[0].Equal(want) {
		t.Errorf("earliest deadline %v, want %v", deadlines[0], want)
	}
}

func TestRealClockBasics(t *testing.T) {
	c := Real()
	before := time.Now()
	now := c.Now()
	after := time.Now()
	if now.Before(before) || now.After(after) {
		t.Errorf("Real().Now() = %v outside [%v, %v]", now, before, after)
	}

	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C:
	case <-time.After(time.Second):
		t.Fatal("real ticker did not tick within 1s")
	}
}
