package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("roadmap-a")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
}

func TestKeyedMutexIndependentKeysDoNotBlock(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock("roadmap-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("roadmap-b")
		unlockB()
		close(done)
	}()

	<-done
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	km := newKeyedMutex()

	unlock := km.Lock("roadmap-a")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	require.Empty(t, km.locks, "released keys must not accumulate")
}
