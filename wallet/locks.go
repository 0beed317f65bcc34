/*
locks.go - Per-wallet exclusive sections

PURPOSE:
  Serializes mutations per wallet. Concurrent operations on the same wallet
  never interleave; operations on different wallets proceed in parallel.

DEADLOCK AVOIDANCE:
  Transfers hold two locks at once. lockPair always acquires them in
  ascending UserID order, so two transfers touching the same wallet pair in
  opposite directions cannot deadlock. No operation holds more than two
  locks.

GROWTH:
  The lock map grows with the set of wallets ever touched by this process
  and is never evicted.
*/
package wallet

import "sync"

type lockTable struct {
	mu    sync.Mutex
	locks map[UserID]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[UserID]*sync.Mutex)}
}

func (lt *lockTable) get(id UserID) *sync.Mutex {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	m, ok := lt.locks[id]
	if !ok {
		m = &sync.Mutex{}
		lt.locks[id] = m
	}
	return m
}

// lock acquires the exclusive section for one wallet and returns its
// release function.
func (lt *lockTable) lock(id UserID) func() {
	m := lt.get(id)
	m.Lock()
	return m.Unlock
}

// lockPair acquires exclusive sections for two distinct wallets in
// canonical (ascending UserID) order and returns a single release function.
func (lt *lockTable) lockPair(a, b UserID) func() {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	m1 := lt.get(first)
	m2 := lt.get(second)
	m1.Lock()
	m2.Lock()
	return func() {
		m2.Unlock()
		m1.Unlock()
	}
}
