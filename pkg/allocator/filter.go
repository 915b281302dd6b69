package allocator

import (
	"fmt"
	"time"

	"github.com/github4bhavin/mesos/pkg/allocator/scalar"
)

// refusedFilter suppresses offers of particular resources on one slave to
// the framework that declined them, until the expiry instant.
type refusedFilter struct {
	frameworkID string
	slaveID     string
	resources   *scalar.Resources
	ports       scalar.Ports
	expiry      time.Time
}

// suppresses reports whether a would-be offer falls under this filter: the
// slave matches and the offer is no more than what was refused. A slave
// that has gained resources since the refusal escapes the filter, so the
// framework sees the bigger offer.
func (f *refusedFilter) suppresses(slaveID string, res *scalar.Resources, ports scalar.Ports) bool {
	if f.slaveID != slaveID {
		return false
	}
	return f.resources.Contains(res) && f.ports.Contains(ports)
}

// expired reports whether the filter is past its expiry at the given time.
func (f *refusedFilter) expired(now time.Time) bool {
	return !now.Before(f.expiry)
}

func (f *refusedFilter) String() string {
	return fmt.Sprintf("filter{framework: %v slave: %v resources: %v expiry: %v}",
		f.frameworkID, f.slaveID, f.resources, f.expiry)
}
