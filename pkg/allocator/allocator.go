// Package allocator implements the resource allocator of the cluster
// manager: it tracks slaves, frameworks, filters and the whitelist, and
// periodically decides which free resources to offer to which framework
// using hierarchical dominant resource fairness.
package allocator

import (
	"time"

	"github.com/github4bhavin/mesos/pkg/allocator/scalar"
)

// DefaultRole is the resource sharing role a framework belongs to when its
// info does not name one.
const DefaultRole = "*"

// FrameworkInfo describes a framework to the allocator.
type FrameworkInfo struct {
	Name string
	User string
	// Role is the resource sharing partition the framework allocates
	// from; empty means DefaultRole.
	Role string
	// Weight skews dominant resource fairness in the framework's favor
	// when greater than one; zero means the default weight of one.
	Weight float64
}

// SlaveInfo describes a slave to the allocator.
type SlaveInfo struct {
	Hostname string
	// Reserved statically assigns a portion of the slave's resources to
	// a role. Every reservation must fit in the slave total.
	Reserved map[string]*scalar.Resources
}

// UsedResources describes resources a framework already holds on one slave
// at registration time, e.g. tasks that survived a master failover.
type UsedResources struct {
	Resources *scalar.Resources
	Ports     scalar.Ports
}

// Offer is a proposed grant of resources on one slave to one framework.
// It is not committed until the framework launches against it; whatever is
// left over comes back through ResourcesUnused.
type Offer struct {
	SlaveID   string
	Hostname  string
	Resources *scalar.Resources
	Ports     scalar.Ports
}

// OfferCallback delivers one allocation decision to the cluster manager:
// the framework and the slaves' resources offered to it, ordered by slave
// id. It is invoked from the allocator goroutine and must not call back
// into the allocator synchronously.
type OfferCallback func(frameworkID string, offers []*Offer)

// Allocator is the asynchronous dispatch boundary between the cluster
// manager and an allocation policy. All handlers enqueue an event and
// return immediately; events are processed strictly one at a time by a
// single goroutine, so no two handlers ever interleave and every handler
// observes a consistent state. Handlers for ids that no longer exist
// degrade to no-ops, which makes out of order delivery safe.
type Allocator interface {
	// Start launches the event processing goroutine.
	Start() error

	// Stop drains the processing goroutine and blocks until it exits.
	Stop() error

	// FrameworkAdded registers a framework, seeds its role's sorter with
	// any resources it already holds, and marks it eligible for offers.
	FrameworkAdded(id string, info FrameworkInfo, used map[string]*UsedResources) error

	// FrameworkRemoved releases everything the framework holds back to
	// the slaves' free pools and drops it from its sorter. Repeated or
	// late removals are no-ops.
	FrameworkRemoved(id string) error

	// FrameworkActivated makes the framework eligible for offers again
	// after a scheduler failover.
	FrameworkActivated(id string) error

	// FrameworkDeactivated stops offers to the framework without
	// touching its allocation bookkeeping.
	FrameworkDeactivated(id string) error

	// SlaveAdded registers a slave and adds its resources to the free
	// pool.
	SlaveAdded(id string, info SlaveInfo, total *scalar.Resources, ports scalar.Ports) error

	// SlaveRemoved purges the slave's resources from the free pool, from
	// every framework's allocation and from pending filters.
	SlaveRemoved(id string) error

	// ResourcesUnused returns the part of an offer the framework did not
	// launch against, and suppresses the same resources on the same
	// slave for that framework until the filter expires. A nil duration
	// falls back to the configured default; a zero duration installs no
	// filter at all.
	ResourcesUnused(frameworkID, slaveID string, res *scalar.Resources, ports scalar.Ports, filterDuration *time.Duration) error

	// ResourcesRecovered returns resources from a finished or killed
	// task to the slave's free pool. Safe to call for a framework that
	// has since been removed: only the free pool is updated then.
	ResourcesRecovered(frameworkID, slaveID string, res *scalar.Resources, ports scalar.Ports) error

	// UpdateWhitelist replaces the slave whitelist wholesale; nil allows
	// all slaves. Takes effect on the next allocation run.
	UpdateWhitelist(hostnames []string) error
}
