package allocator

import (
	"time"

	"github.com/github4bhavin/mesos/pkg/allocator/scalar"
)

// eventKind enumerates the messages understood by the allocator goroutine.
type eventKind int

const (
	// eventAllocate requests a batch allocation run; the interval timer
	// enqueues it like any other message.
	eventAllocate eventKind = iota
	eventFrameworkAdded
	eventFrameworkRemoved
	eventFrameworkActivated
	eventFrameworkDeactivated
	eventSlaveAdded
	eventSlaveRemoved
	eventResourcesUnused
	eventResourcesRecovered
	eventUpdateWhitelist
	eventExpireFilter
)

func (k eventKind) String() string {
	switch k {
	case eventAllocate:
		return "allocate"
	case eventFrameworkAdded:
		return "frameworkAdded"
	case eventFrameworkRemoved:
		return "frameworkRemoved"
	case eventFrameworkActivated:
		return "frameworkActivated"
	case eventFrameworkDeactivated:
		return "frameworkDeactivated"
	case eventSlaveAdded:
		return "slaveAdded"
	case eventSlaveRemoved:
		return "slaveRemoved"
	case eventResourcesUnused:
		return "resourcesUnused"
	case eventResourcesRecovered:
		return "resourcesRecovered"
	case eventUpdateWhitelist:
		return "updateWhitelist"
	case eventExpireFilter:
		return "expireFilter"
	}
	return "unknown"
}

// event is the single item type flowing through the allocator mailbox.
// Only the fields relevant to the kind are set.
type event struct {
	kind eventKind

	frameworkID   string
	slaveID       string
	frameworkInfo FrameworkInfo
	slaveInfo     SlaveInfo

	used map[string]*UsedResources

	resources *scalar.Resources
	ports     scalar.Ports

	filterDuration *time.Duration
	filter         *refusedFilter

	// nil means allow all slaves.
	whitelist []string
}
