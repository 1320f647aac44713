package controller

import (
	"github.com/clambin/smarterzones/internal/host"
	"sync"
)

// queue holds the jobs waiting to be processed by the controller. Host callbacks may run on the controller's own
// goroutine (e.g. when a command changes an entity's state), so adding a job never blocks.
type queue struct {
	ready chan struct{}
	jobs  []job
	lock  sync.Mutex
}

type job struct {
	event   host.Event
	refresh bool
}

func newQueue() *queue {
	return &queue{ready: make(chan struct{}, 1)}
}

func (q *queue) push(j job) {
	q.lock.Lock()
	q.jobs = append(q.jobs, j)
	q.lock.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *queue) pop() (job, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if len(q.jobs) == 0 {
		return job{}, false
	}
	j := q.jobs[0]
	q.jobs[0] = job{}
	q.jobs = q.jobs[1:]
	return j, true
}

func (q *queue) len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.jobs)
}
