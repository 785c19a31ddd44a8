// Package sharding provides the fixed pool of serial workers the decoded
// consumer uses to serialize handler execution per vault/term while
// processing unrelated vaults fully in parallel (§5 "Implementations
// SHOULD shard messages by a stable key... to a fixed pool of serial
// workers"). It generalizes the teacher's MessageQueue dispatch-by-type
// switch (core/messages.go ProcessNext) into dispatch-by-shard.
package sharding

import (
	"hash/fnv"
)

// Task is one unit of work submitted to a shard.
type Task func()

// Pool routes tasks to one of a fixed number of serial workers, keyed by a
// stable string (vault_id for balance events, term_id for atom events,
// §5). Two tasks with the same key always run on the same worker and
// therefore never overlap; tasks with different keys may run concurrently.
type Pool struct {
	shards []chan Task
	done   chan struct{}
}

// NewPool starts n serial workers, each draining its own task channel.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{
		shards: make([]chan Task, n),
		done:   make(chan struct{}),
	}
	for i := range p.shards {
		p.shards[i] = make(chan Task, 64)
		go p.worker(p.shards[i])
	}
	return p
}

func (p *Pool) worker(tasks chan Task) {
	for {
		select {
		case t, ok := <-tasks:
			if !ok {
				return
			}
			t()
		case <-p.done:
			return
		}
	}
}

// Submit enqueues fn onto the shard owned by key and blocks until the task
// has been accepted by that shard's channel (not until it finishes).
func (p *Pool) Submit(key string, fn Task) {
	p.shards[p.shardIndex(key)] <- fn
}

// Run submits fn onto key's shard and blocks until fn has run, returning
// its error. Used by handlers that must know the outcome before deciding
// whether to ack the triggering queue message.
func (p *Pool) Run(key string, fn func() error) error {
	errc := make(chan error, 1)
	p.Submit(key, func() {
		errc <- fn()
	})
	return <-errc
}

func (p *Pool) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(p.shards)
}

// Close signals every worker to stop once its current task finishes. A
// worker picks at random between the stop signal and its queue when both
// are ready, so tasks already queued may still run or may be dropped.
func (p *Pool) Close() {
	close(p.done)
}
