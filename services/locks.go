package services

import "sync"

// keyedMutex provides mutual exclusion scoped to an entity id. Operations on
// different ids proceed fully in parallel; there is no engine-wide lock.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// EntityLocks groups the per-proposal and per-user critical sections shared
// by the engine services. User locks are never taken while holding another
// user's lock, and proposal locks never nest, so the engine cannot deadlock.
type EntityLocks struct {
	Proposals *keyedMutex
	Users     *keyedMutex
}

func NewEntityLocks() *EntityLocks {
	return &EntityLocks{
		Proposals: newKeyedMutex(),
		Users:     newKeyedMutex(),
	}
}
