package allocator

import (
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/pborman/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally"

	"github.com/github4bhavin/mesos/pkg/allocator/scalar"
)

const (
	offerWaitTime   = 2 * time.Second
	noOfferWaitTime = 250 * time.Millisecond
)

type offerNotice struct {
	frameworkID string
	offers      []*Offer
}

type HierarchicalTestSuite struct {
	suite.Suite

	clk    *fakeclock.FakeClock
	alloc  Allocator
	offers chan *offerNotice
}

func (s *HierarchicalTestSuite) SetupTest() {
	s.clk = fakeclock.NewFakeClock(time.Now())
	s.offers = make(chan *offerNotice, 32)
	s.alloc = NewHierarchicalAllocator(
		&Config{
			// Long enough that only event triggers drive allocation
			// in these tests.
			AllocationInterval: time.Minute,
			FilterTimeout:      5 * time.Second,
		},
		tally.NoopScope,
		s.clk,
		func(frameworkID string, offers []*Offer) {
			s.offers <- &offerNotice{frameworkID: frameworkID, offers: offers}
		},
	)
	s.NoError(s.alloc.Start())
}

func (s *HierarchicalTestSuite) TearDownTest() {
	s.NoError(s.alloc.Stop())
}

func (s *HierarchicalTestSuite) waitOffer() *offerNotice {
	select {
	case n := <-s.offers:
		return n
	case <-time.After(offerWaitTime):
		s.FailNow("timed out waiting for an offer")
		return nil
	}
}

func (s *HierarchicalTestSuite) expectNoOffer() {
	select {
	case n := <-s.offers:
		s.FailNowf("unexpected offer", "framework %v received %d offers",
			n.frameworkID, len(n.offers))
	case <-time.After(noOfferWaitTime):
	}
}

// waitForTimers blocks until the fake clock has at least n pending
// watchers, so an Increment cannot race timer creation.
func (s *HierarchicalTestSuite) waitForTimers(n int) {
	s.Require().Eventually(func() bool {
		return s.clk.WatcherCount() >= n
	}, offerWaitTime, 10*time.Millisecond)
}

func res(cpu, mem float64) *scalar.Resources {
	return &scalar.Resources{CPU: cpu, MEMORY: mem}
}

// Two frameworks, three slaves added one at a time. Dominant resource
// fairness sends each new slave to whichever framework has the lower
// dominant share at that point.
func (s *HierarchicalTestSuite) TestDRFAllocation() {
	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), nil))

	n := s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.Len(n.offers, 1)
	s.Equal("slave1", n.offers[0].SlaveID)
	s.True(res(2, 1024).Equal(n.offers[0].Resources))

	// fw1 now dominates on cpu. The next slave goes to the newcomer.
	s.NoError(s.alloc.FrameworkAdded("fw2", FrameworkInfo{Name: "fw2"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave2", SlaveInfo{Hostname: "host2"}, res(1, 512), nil))

	n = s.waitOffer()
	s.Equal("fw2", n.frameworkID)
	s.Equal("slave2", n.offers[0].SlaveID)
	s.True(res(1, 512).Equal(n.offers[0].Resources))

	// fw1 holds 2 of 6 cpus, fw2 holds 1 of 6; fw2 is still behind and
	// takes the third slave too.
	s.NoError(s.alloc.SlaveAdded("slave3", SlaveInfo{Hostname: "host3"}, res(3, 2048), nil))

	n = s.waitOffer()
	s.Equal("fw2", n.frameworkID)
	s.Equal("slave3", n.offers[0].SlaveID)
	s.True(res(3, 2048).Equal(n.offers[0].Resources))
}

// A framework that declines resources gets them filtered; the next
// allocation sends the same slave to the other framework instead.
func (s *HierarchicalTestSuite) TestDeclinedResourcesGoElsewhere() {
	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), nil))
	s.Equal("fw1", s.waitOffer().frameworkID)

	s.NoError(s.alloc.FrameworkAdded("fw2", FrameworkInfo{Name: "fw2"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave2", SlaveInfo{Hostname: "host2"}, res(3, 2048), nil))
	n := s.waitOffer()
	s.Equal("fw2", n.frameworkID)
	s.Equal("slave2", n.offers[0].SlaveID)

	// fw2 declines the whole offer with the default filter. fw2 still
	// ranks first but is filtered on slave2, so fw1 picks it up.
	s.NoError(s.alloc.ResourcesUnused("fw2", "slave2", res(3, 2048), nil, nil))

	n = s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.Equal("slave2", n.offers[0].SlaveID)
	s.True(res(3, 2048).Equal(n.offers[0].Resources))
}

// With no competing framework, declined resources stay unoffered until the
// filter times out, then come back.
func (s *HierarchicalTestSuite) TestFilterExpiry() {
	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), nil))
	s.Equal("fw1", s.waitOffer().frameworkID)

	s.NoError(s.alloc.ResourcesUnused("fw1", "slave1", res(2, 1024), nil, nil))
	s.expectNoOffer()

	// The loop ticker plus the filter expiry timer.
	s.waitForTimers(2)
	s.clk.Increment(6 * time.Second)

	n := s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.True(res(2, 1024).Equal(n.offers[0].Resources))
}

// A zero filter duration means no filter: the declined resources are
// offered right back.
func (s *HierarchicalTestSuite) TestZeroFilterDuration() {
	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), nil))
	s.Equal("fw1", s.waitOffer().frameworkID)

	zero := time.Duration(0)
	s.NoError(s.alloc.ResourcesUnused("fw1", "slave1", res(2, 1024), nil, &zero))

	n := s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.True(res(2, 1024).Equal(n.offers[0].Resources))
}

// A resource return that arrives after its framework was removed must not
// inflate the pool: the removal already gave everything back.
func (s *HierarchicalTestSuite) TestLateReturnAfterFrameworkRemoved() {
	fw1 := uuid.New()
	fw2 := uuid.New()

	s.NoError(s.alloc.FrameworkAdded(fw1, FrameworkInfo{Name: "one"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), nil))
	s.Equal(fw1, s.waitOffer().frameworkID)

	s.NoError(s.alloc.FrameworkRemoved(fw1))
	s.NoError(s.alloc.FrameworkAdded(fw2, FrameworkInfo{Name: "two"}, nil))
	n := s.waitOffer()
	s.Equal(fw2, n.frameworkID)
	s.True(res(2, 1024).Equal(n.offers[0].Resources))

	// The late return is clamped to nothing; fw2 holds the whole slave.
	s.NoError(s.alloc.ResourcesRecovered(fw1, "slave1", res(2, 1024), nil))
	s.expectNoOffer()

	// When fw2 really gives the slave back the reoffer is exactly the
	// slave total, not the total plus the bogus late return.
	zero := time.Duration(0)
	s.NoError(s.alloc.ResourcesUnused(fw2, "slave1", res(2, 1024), nil, &zero))
	n = s.waitOffer()
	s.Equal(fw2, n.frameworkID)
	s.True(res(2, 1024).Equal(n.offers[0].Resources))
}

// Deactivation stops offers without touching the allocation; activation
// resumes them.
func (s *HierarchicalTestSuite) TestSchedulerFailover() {
	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), nil))
	s.Equal("fw1", s.waitOffer().frameworkID)

	s.NoError(s.alloc.FrameworkDeactivated("fw1"))
	s.NoError(s.alloc.ResourcesRecovered("fw1", "slave1", res(2, 1024), nil))
	s.expectNoOffer()

	s.NoError(s.alloc.FrameworkActivated("fw1"))
	n := s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.True(res(2, 1024).Equal(n.offers[0].Resources))
}

// A removed slave's resources vanish for good; a replacement slave is a
// fresh allocation.
func (s *HierarchicalTestSuite) TestSlaveRemovedAndReplaced() {
	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), nil))
	s.Equal("fw1", s.waitOffer().frameworkID)

	s.NoError(s.alloc.SlaveRemoved("slave1"))
	// Returning resources from the removed slave is a stale no-op.
	s.NoError(s.alloc.ResourcesRecovered("fw1", "slave1", res(2, 1024), nil))
	s.expectNoOffer()

	s.NoError(s.alloc.SlaveAdded("slave2", SlaveInfo{Hostname: "host2"}, res(4, 2048), nil))
	n := s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.Equal("slave2", n.offers[0].SlaveID)
	s.True(res(4, 2048).Equal(n.offers[0].Resources))
}

// Only whitelisted slaves are offered; clearing the whitelist opens the
// cluster back up.
func (s *HierarchicalTestSuite) TestWhitelist() {
	s.NoError(s.alloc.UpdateWhitelist([]string{"elsewhere"}))
	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), nil))
	s.expectNoOffer()

	s.NoError(s.alloc.UpdateWhitelist([]string{"elsewhere", "host1"}))
	n := s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.Equal("slave1", n.offers[0].SlaveID)

	// Clearing the whitelist admits a slave on a host never listed.
	zero := time.Duration(0)
	s.NoError(s.alloc.ResourcesUnused("fw1", "slave1", res(2, 1024), nil, &zero))
	s.Equal("fw1", s.waitOffer().frameworkID)
	s.NoError(s.alloc.UpdateWhitelist([]string{"elsewhere"}))
	s.NoError(s.alloc.SlaveAdded("slave2", SlaveInfo{Hostname: "host2"}, res(1, 512), nil))
	s.expectNoOffer()
	s.NoError(s.alloc.UpdateWhitelist(nil))
	n = s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.Equal("slave2", n.offers[0].SlaveID)
}

// Resources a framework reports as already used at registration are not
// reoffered, and come back through the normal recovery path.
func (s *HierarchicalTestSuite) TestFrameworkAddedWithUsedResources() {
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), nil))
	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"},
		map[string]*UsedResources{
			"slave1": {Resources: res(2, 1024)},
		}))
	s.expectNoOffer()

	s.NoError(s.alloc.ResourcesRecovered("fw1", "slave1", res(1, 512), nil))
	n := s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.True(res(1, 512).Equal(n.offers[0].Resources))
}

// Role reservations are only offered to frameworks of the reserving role.
func (s *HierarchicalTestSuite) TestRoleReservations() {
	s.NoError(s.alloc.SlaveAdded("slave1",
		SlaveInfo{
			Hostname: "host1",
			Reserved: map[string]*scalar.Resources{"prod": res(2, 2048)},
		},
		res(4, 4096), nil))

	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"}, nil))
	n := s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.True(res(2, 2048).Equal(n.offers[0].Resources))

	s.NoError(s.alloc.FrameworkAdded("prod-fw", FrameworkInfo{Name: "prod-fw", Role: "prod"}, nil))
	n = s.waitOffer()
	s.Equal("prod-fw", n.frameworkID)
	s.True(res(2, 2048).Equal(n.offers[0].Resources))
}

// Ports travel with offers and come back on decline like scalars do.
func (s *HierarchicalTestSuite) TestPortsOffered() {
	ports, err := scalar.PortsFromRanges([2]uint32{31000, 31002})
	s.Require().NoError(err)

	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), ports))

	n := s.waitOffer()
	s.Equal("fw1", n.frameworkID)
	s.True(ports.Equal(n.offers[0].Ports))

	zero := time.Duration(0)
	s.NoError(s.alloc.ResourcesUnused("fw1", "slave1", res(2, 1024), ports, &zero))
	n = s.waitOffer()
	s.True(ports.Equal(n.offers[0].Ports))
}

// Whatever happens, free plus allocated equals the cluster total.
func (s *HierarchicalTestSuite) TestConservation() {
	s.NoError(s.alloc.FrameworkAdded("fw1", FrameworkInfo{Name: "fw1"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave1", SlaveInfo{Hostname: "host1"}, res(2, 1024), nil))
	s.Equal("fw1", s.waitOffer().frameworkID)

	s.NoError(s.alloc.FrameworkAdded("fw2", FrameworkInfo{Name: "fw2"}, nil))
	s.NoError(s.alloc.SlaveAdded("slave2", SlaveInfo{Hostname: "host2"}, res(3, 2048), nil))
	s.Equal("fw2", s.waitOffer().frameworkID)

	// fw1's decline is filtered for fw1, so fw2 picks the remainder up;
	// fw2's recovery then flows to fw1, which is not filtered on slave2.
	s.NoError(s.alloc.ResourcesUnused("fw1", "slave1", res(1, 256), nil, nil))
	s.Equal("fw2", s.waitOffer().frameworkID)
	s.NoError(s.alloc.ResourcesRecovered("fw2", "slave2", res(1, 1024), nil))
	s.Equal("fw1", s.waitOffer().frameworkID)
	s.NoError(s.alloc.FrameworkRemoved("fw1"))
	s.Equal("fw2", s.waitOffer().frameworkID)

	// Stop the loop so the internal state is quiescent, then audit it.
	s.NoError(s.alloc.Stop())
	h := s.alloc.(*hierarchicalAllocator)

	free := &scalar.Resources{}
	for _, slave := range h.slaves {
		free = free.Add(slave.freeTotal())
	}
	allocated := &scalar.Resources{}
	for _, fw := range h.frameworks {
		allocated = allocated.Add(fw.totalAllocation())
	}
	s.True(h.clusterTotal.Equal(free.Add(allocated)))

	// Restart so TearDownTest's Stop finds a running allocator.
	s.NoError(s.alloc.Start())
}

func TestHierarchicalTestSuite(t *testing.T) {
	suite.Run(t, new(HierarchicalTestSuite))
}
