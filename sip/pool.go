package sip

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Executor runs dispatch tasks.
// Go may block until the task can be started.
type Executor interface {
	Go(task func())
}

// ExecutorFunc adapts a function to the [Executor] interface.
type ExecutorFunc func(task func())

func (f ExecutorFunc) Go(task func()) { f(task) }

// Pool is a bounded goroutine pool, it can be shared by several dispatchers.
type Pool struct {
	p   *pool.Pool
	max int
}

// NewPool creates a pool running at most n tasks at once.
// If n <= 0, the number of CPUs multiplied by 4 is used.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = 4 * runtime.GOMAXPROCS(0)
	}
	return &Pool{p: pool.New().WithMaxGoroutines(n), max: n}
}

// Go submits the task, it blocks while all goroutines of the pool are busy.
func (p *Pool) Go(task func()) { p.p.Go(task) }

// MaxGoroutines returns the limit of the pool.
func (p *Pool) MaxGoroutines() int { return p.max }

// Wait waits for all submitted tasks to complete.
// The pool can't be used after Wait.
func (p *Pool) Wait() { p.p.Wait() }
