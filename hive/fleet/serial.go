package fleet

import "sync"

// serialExec runs closures one at a time on a single goroutine. Durable
// store access goes through it so that concurrent device activity never
// interleaves inside the store, and so no store I/O ever runs while the
// cache mutex is held.
type serialExec struct {
	tasks chan func()
	wg    sync.WaitGroup

	closeOnce sync.Once
}

func newSerialExec() *serialExec {
	e := &serialExec{tasks: make(chan func(), 64)}
	e.wg.Add(1)
	go e.run()
	return e
}

func (e *serialExec) run() {
	defer e.wg.Done()
	for task := range e.tasks {
		task()
	}
}

// Do submits fn and blocks until it has run, returning its error.
func (e *serialExec) Do(fn func() error) error {
	done := make(chan error, 1)
	e.tasks <- func() { done <- fn() }
	return <-done
}

// Close drains pending tasks and stops the executor.
func (e *serialExec) Close() {
	e.closeOnce.Do(func() { close(e.tasks) })
	e.wg.Wait()
}
