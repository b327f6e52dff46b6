package ratelimit

import (
    "testing"
    "time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time            { return c.t }
func (c *fakeClock) advance(d time.Duration)   { c.t = c.t.Add(d) }

func TestWindow_AllowsUpToLimit(t *testing.T) {
    clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
    w := NewWindowClock(5, time.Minute, clk.now)

    for i := 0; i < 5; i++ {
        if d := w.Delay(); d != 0 {
            t.Fatalf("call %d: want no delay, got %v", i, d)
        }
        w.Record()
    }
    d := w.Delay()
    if d <= 0 || d > time.Minute {
        t.Fatalf("after limit: want 0 < delay <= window, got %v", d)
    }
}

func TestWindow_DelayShrinksAsWindowAges(t *testing.T) {
    clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
    w := NewWindowClock(1, time.Minute, clk.now)

    w.Record()
    clk.advance(40 * time.Second)
    if d := w.Delay(); d != 20*time.Second {
        t.Fatalf("want 20s remaining, got %v", d)
    }
}

func TestWindow_ResetsAfterRollover(t *testing.T) {
    clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
    w := NewWindowClock(2, time.Minute, clk.now)

    w.Record()
    w.Record()
    if !w.Exhausted() { t.Fatal("want exhausted after limit calls") }

    clk.advance(time.Minute)
    if w.Exhausted() { t.Fatal("want reset after window elapsed") }
    if d := w.Delay(); d != 0 { t.Fatalf("want zero delay after rollover, got %v", d) }
}

func TestWindow_HardDailyCap(t *testing.T) {
    clk := &fakeClock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
    w := NewWindowClock(250, 24*time.Hour, clk.now)

    for i := 0; i < 250; i++ { w.Record() }
    if !w.Exhausted() { t.Fatal("want daily cap exhausted") }

    clk.advance(23 * time.Hour)
    if !w.Exhausted() { t.Fatal("still inside the day, want exhausted") }
    clk.advance(time.Hour)
    if w.Exhausted() { t.Fatal("next day, want fresh budget") }
}
