package utils

import (
	"sync"
)

// OptionalMutex is a sync.Mutex that can be turned off wholesale for consumers
// that guarantee external synchronization.
type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if !m.UseMutex {
		return
	}
	m.Mutex.Lock()
}

func (m *OptionalMutex) Unlock() {
	if !m.UseMutex {
		return
	}
	m.Mutex.Unlock()
}

// OptionalRWMutex is a sync.RWMutex that can be turned off wholesale for consumers
// that guarantee external synchronization.
type OptionalRWMutex struct {
	Mutex    sync.RWMutex
	UseMutex bool
}

func (m *OptionalRWMutex) Lock() {
	if !m.UseMutex {
		return
	}
	m.Mutex.Lock()
}

func (m *OptionalRWMutex) Unlock() {
	if !m.UseMutex {
		return
	}
	m.Mutex.Unlock()
}

func (m *OptionalRWMutex) RLock() {
	if !m.UseMutex {
		return
	}
	m.Mutex.RLock()
}

func (m *OptionalRWMutex) RUnlock() {
	if !m.UseMutex {
		return
	}
	m.Mutex.RUnlock()
}
