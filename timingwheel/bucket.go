package timingwheel

import "sync"

// bucket is a TimerBucket: a mutex-protected list of tasks. At any moment a
// task lives in exactly one bucket on exactly one wheel.
type bucket struct {
	mu    sync.Mutex
	tasks []*Task
}

func (b *bucket) add(t *Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, t)
}

// drain removes and returns every task currently in the bucket, leaving it
// empty. The critical section is kept to the swap only; callers process
// the drained tasks outside the lock.
func (b *bucket) drain() []*Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.tasks) == 0 {
		return nil
	}
	drained := b.tasks
	b.tasks = nil
	return drained
}
