// Package bitset provides a fixed-size, lock-free bitset.
//
// It backs write-once result slots: concurrent workers claim a slot index with
// TestAndSet before writing the slot, and a second claim on the same index is
// detected without locks.
package bitset
