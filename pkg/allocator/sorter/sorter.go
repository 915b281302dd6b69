// Package sorter implements the fair-share ordering used by the allocator.
// A Sorter tracks the clients of one scheduling domain (the frameworks of a
// role, or the roles of the cluster) together with their current allocation,
// and produces a deterministic fairness order over them.
package sorter

import "github.com/github4bhavin/mesos/pkg/allocator/scalar"

// Sorter ranks the clients of one scheduling domain against each other.
// It is not thread safe; all calls are expected from the single allocator
// goroutine which owns the domain.
type Sorter interface {
	// Add registers a client with zero allocation. A client may only be
	// added once; the weight must be positive.
	Add(client string, weight float64) error

	// Remove deregisters a client and drops its allocation. Removing a
	// client that is not present is a no-op, so late or repeated removal
	// messages are harmless.
	Remove(client string)

	// Contains reports whether the client is registered.
	Contains(client string) bool

	// Count returns the number of registered clients.
	Count() int

	// Allocated records that resources were handed to the client.
	Allocated(client string, delta *scalar.Resources) error

	// Unallocated records that resources previously handed to the client
	// were returned. A delta larger than the client's allocation signals a
	// caller bug: the allocation is clamped at zero and an error returned.
	Unallocated(client string, delta *scalar.Resources) error

	// Allocation returns a copy of the client's current allocation, or a
	// zero vector for an unknown client.
	Allocation(client string) *scalar.Resources

	// AddTotal grows the domain's resource pool.
	AddTotal(delta *scalar.Resources)

	// SubtractTotal shrinks the domain's resource pool.
	SubtractTotal(delta *scalar.Resources)

	// Total returns a copy of the domain's resource pool.
	Total() *scalar.Resources

	// Sort returns all clients ordered ascending by dominant share,
	// recomputed fresh from the current allocations.
	Sort() []string
}
