package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	m := New()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock(1)
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
	require.Zero(t, m.Len())
}

func TestLockIndependentKeys(t *testing.T) {
	m := New()
	unlockA := m.Lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := m.Lock(2)
		unlockB()
		close(done)
	}()
	<-done
	require.Equal(t, 1, m.Len())
	unlockA()
	require.Zero(t, m.Len())
}
