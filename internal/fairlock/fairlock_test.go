package fairlock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockExcludesConcurrentAccess(t *testing.T) {
	f := New()
	var active int32
	var maxActive int32
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Lock()
			defer f.Unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxActive)
}

func TestLockArrivalOrderIsPreserved(t *testing.T) {
	f := New()
	f.Lock()

	const n = 5
	order := make([]int, 0, n)
	var mu sync.Mutex
	started := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		i := i
		go func() {
			started <- struct{}{}
			f.Lock()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			f.Unlock()
		}()
		<-started
		time.Sleep(2 * time.Millisecond)
	}

	f.Unlock()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, order, n)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}
