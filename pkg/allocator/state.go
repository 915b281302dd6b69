package allocator

import (
	log "github.com/sirupsen/logrus"

	"github.com/github4bhavin/mesos/pkg/allocator/scalar"
)

// allocation is what one framework currently holds on one slave, split by
// the pool it was drawn from.
type allocation struct {
	unreserved *scalar.Resources
	reserved   *scalar.Resources
	ports      scalar.Ports
}

func newAllocation() *allocation {
	return &allocation{
		unreserved: &scalar.Resources{},
		reserved:   &scalar.Resources{},
		ports:      scalar.NewPorts(),
	}
}

// total returns the scalar resources held regardless of pool.
func (a *allocation) total() *scalar.Resources {
	return a.unreserved.Add(a.reserved)
}

func (a *allocation) empty() bool {
	return a.unreserved.Empty() && a.reserved.Empty() && a.ports.Empty()
}

// slave tracks one slave's capacity and what is currently free on it. Free
// resources live in the unreserved pool plus one pool per role reservation.
type slave struct {
	id         string
	info       SlaveInfo
	total      *scalar.Resources
	totalPorts scalar.Ports

	available      *scalar.Resources
	availablePorts scalar.Ports
	reservedFree   map[string]*scalar.Resources
}

// reservedFreeTotal sums the free reserved pools across roles.
func (s *slave) reservedFreeTotal() *scalar.Resources {
	sum := &scalar.Resources{}
	for _, res := range s.reservedFree {
		sum = sum.Add(res)
	}
	return sum
}

// freeTotal is everything currently offerable on the slave.
func (s *slave) freeTotal() *scalar.Resources {
	return s.available.Add(s.reservedFreeTotal())
}

// take removes resources from the free pools for a framework of the given
// role, drawing from the role's reserved pool first. It returns the split
// and the ports actually taken. Taking more than is free clamps and logs:
// the caller reported usage the slave cannot hold.
func (s *slave) take(role string, res *scalar.Resources, ports scalar.Ports) (reserved, unreserved *scalar.Resources, held scalar.Ports) {
	reserved = &scalar.Resources{}
	if rf, ok := s.reservedFree[role]; ok {
		reserved = scalar.Min(res, rf)
		s.reservedFree[role] = rf.Subtract(reserved)
	}
	unreserved = res.Subtract(reserved)
	if !s.available.Contains(unreserved) {
		log.WithFields(log.Fields{
			"slave":     s.id,
			"available": s.available,
			"taken":     unreserved,
		}).Error("Taking more than the slave has free")
		unreserved = scalar.Min(unreserved, s.available)
	}
	s.available = s.available.Subtract(unreserved)

	held = s.availablePorts.Intersect(ports)
	if held.Len() != ports.Len() {
		log.WithFields(log.Fields{
			"slave": s.id,
			"ports": ports,
		}).Error("Taking ports the slave does not have free")
	}
	remaining, _ := s.availablePorts.Subtract(held)
	s.availablePorts = remaining
	return reserved, unreserved, held
}

// give returns a tracked allocation split back to the slave's free pools.
func (s *slave) give(role string, reserved, unreserved *scalar.Resources, ports scalar.Ports) {
	if !reserved.Empty() {
		if rf, ok := s.reservedFree[role]; ok {
			s.reservedFree[role] = rf.Add(reserved)
		} else {
			s.reservedFree[role] = reserved.Clone()
		}
	}
	s.available = s.available.Add(unreserved)
	s.availablePorts = s.availablePorts.Add(ports)
}

// framework tracks one framework's standing with the allocator.
type framework struct {
	id     string
	info   FrameworkInfo
	role   string
	weight float64
	// active frameworks receive offers; deactivated ones keep their
	// allocation but are skipped, e.g. during scheduler failover.
	active bool
	// allocations by slave id.
	allocations map[string]*allocation
}

// allocationOn returns the framework's allocation record for a slave,
// creating it if needed.
func (f *framework) allocationOn(slaveID string) *allocation {
	a, ok := f.allocations[slaveID]
	if !ok {
		a = newAllocation()
		f.allocations[slaveID] = a
	}
	return a
}

// totalAllocation sums the framework's scalar holdings across all slaves.
func (f *framework) totalAllocation() *scalar.Resources {
	sum := &scalar.Resources{}
	for _, a := range f.allocations {
		sum = sum.Add(a.total())
	}
	return sum
}
