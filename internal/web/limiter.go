package web

// limiter.go restricts how many files the API deduplicates at once.
//
// Every job holds its whole dataset in memory, so parallel jobs are capped
// with a semaphore. When all slots are occupied, new requests wait up to
// maxWait before failing with ErrTooManyJobs. WaitForDrain lets shutdown
// finish in-flight jobs first.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyJobs is returned when all job slots are occupied and the wait
// timeout expires. Clients should retry after a short delay.
var ErrTooManyJobs = errors.New("too many jobs in progress, please try again later")

// DefaultMaxConcurrentJobs is the default limit for parallel jobs.
const DefaultMaxConcurrentJobs = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// JobLimiter controls concurrent dedup jobs using a semaphore.
type JobLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu       sync.RWMutex
	active   int
	rejected int64
}

// NewJobLimiter creates a limiter that allows at most maxConcurrent simultaneous jobs.
// Non-positive arguments fall back to the package defaults.
func NewJobLimiter(maxConcurrent int, maxWait time.Duration) *JobLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentJobs
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &JobLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a job slot.
// Returns nil on success, ErrTooManyJobs if the wait times out, or the
// context's error if ctx ends first. The caller must Release on success.
func (l *JobLimiter) Acquire(ctx context.Context) error {
	if l.TryAcquire() {
		return nil
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-timer.C:
		l.mu.Lock()
		l.rejected++
		l.mu.Unlock()
		return ErrTooManyJobs

	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without blocking and reports whether it succeeded.
func (l *JobLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a previously acquired slot.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *JobLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of running jobs.
func (l *JobLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *JobLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no job is running or ctx ends.
func (l *JobLimiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// LimiterStatus is a snapshot of the limiter for health checks.
type LimiterStatus struct {
	Active        int   `json:"active"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"max_concurrent"`
	Rejected      int64 `json:"rejected"`
}

// Status returns the current limiter state.
func (l *JobLimiter) Status() LimiterStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return LimiterStatus{
		Active:        l.active,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
		Rejected:      l.rejected,
	}
}
