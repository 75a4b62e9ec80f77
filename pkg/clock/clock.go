package clock

import (
	"sync"
	"time"
)

// Real часы на основе time.Now
type Real struct{}

// Now возвращает текущее время
func (Real) Now() time.Time {
	return time.Now()
}

// Fake управляемые часы для тестов
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake создает часы, показывающие now
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now возвращает установленное время
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set устанавливает время
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Advance сдвигает время на d
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
