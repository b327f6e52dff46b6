package ratelimit

import (
    "context"
    "sync"
    "time"
)

// Window is a fixed-window request counter for providers with strict
// quotas (e.g. 60/minute, 5/minute, 250/day). Each provider owns its own
// instance; there is no shared global state.
//
// The zero clock uses wall time. Tests inject a fake via NewWindowClock.
type Window struct {
    limit  int
    window time.Duration
    now    func() time.Time

    mu    sync.Mutex
    count int
    start time.Time
}

func NewWindow(limit int, window time.Duration) *Window {
    return NewWindowClock(limit, window, time.Now)
}

func NewWindowClock(limit int, window time.Duration, now func() time.Time) *Window {
    if limit <= 0 { limit = 1 }
    if window <= 0 { window = time.Minute }
    return &Window{limit: limit, window: window, now: now}
}

// Delay reports how long the caller must wait before the next call may
// proceed. Zero means the call is allowed now. The counter resets whenever
// the current window has elapsed.
func (w *Window) Delay() time.Duration {
    w.mu.Lock()
    defer w.mu.Unlock()
    now := w.now()
    if w.start.IsZero() || now.Sub(w.start) >= w.window {
        w.count = 0
        w.start = now
    }
    if w.count < w.limit { return 0 }
    return w.window - now.Sub(w.start)
}

// Record counts one performed call against the current window.
func (w *Window) Record() {
    w.mu.Lock()
    defer w.mu.Unlock()
    now := w.now()
    if w.start.IsZero() || now.Sub(w.start) >= w.window {
        w.count = 0
        w.start = now
    }
    w.count++
}

// Exhausted reports whether the current window's budget is spent.
// Providers with a hard daily cap check this to truncate instead of block.
func (w *Window) Exhausted() bool { return w.Delay() > 0 }

// Wait blocks until a call is allowed or the context is canceled.
func (w *Window) Wait(ctx context.Context) error {
    for {
        d := w.Delay()
        if d <= 0 { return nil }
        t := time.NewTimer(d)
        select {
        case <-ctx.Done():
            t.Stop()
            return ctx.Err()
        case <-t.C:
        }
    }
}

// MinInterval enforces a minimum pause between consecutive calls.
// Used as a politeness gate by the scraped-broker provider so successive
// page fetches do not hammer the upstream.
type MinInterval struct {
    Interval time.Duration

    mu   sync.Mutex
    last time.Time
}

// Wait blocks until at least Interval has passed since the previous call,
// or returns early if the context is canceled.
func (m *MinInterval) Wait(ctx context.Context) error {
    if m.Interval <= 0 { return nil }
    m.mu.Lock()
    wait := time.Until(m.last.Add(m.Interval))
    m.mu.Unlock()
    if wait > 0 {
        t := time.NewTimer(wait)
        defer t.Stop()
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-t.C:
        }
    }
    m.mu.Lock()
    m.last = time.Now()
    m.mu.Unlock()
    return nil
}
