package sharding

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolSerializesTasksForTheSameKey(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var mu sync.Mutex
	var order []int
	running, maxRunning := 0, 0
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_ = p.Run("vault-1", func() error {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				order = append(order, i)
				mu.Unlock()
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Len(t, order, 20)
	assert.Equal(t, 1, maxRunning)
}

func TestPoolRunPropagatesError(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	sentinel := errors.New("boom")
	err := p.Run("term-1", func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestPoolRoutesSameKeyToSameShard(t *testing.T) {
	p := NewPool(8)
	defer p.Close()

	idx1 := p.shardIndex("vault-abc")
	idx2 := p.shardIndex("vault-abc")
	assert.Equal(t, idx1, idx2)
}
