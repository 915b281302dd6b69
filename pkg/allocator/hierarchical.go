package allocator

import (
	"reflect"
	"time"

	"code.cloudfoundry.org/clock"
	log "github.com/sirupsen/logrus"
	uat "github.com/uber-go/atomic"
	"github.com/uber-go/tally"

	"github.com/github4bhavin/mesos/pkg/allocator/scalar"
	"github.com/github4bhavin/mesos/pkg/allocator/sorter"
	"github.com/github4bhavin/mesos/pkg/common/lifecycle"
	"github.com/github4bhavin/mesos/pkg/common/queue"
	"github.com/github4bhavin/mesos/pkg/common/stringset"
)

// dequeueWaitTime bounds how long the allocator goroutine blocks on the
// mailbox before re-checking the stop channel and the interval timer.
const dequeueWaitTime = 100 * time.Millisecond

// hierarchicalAllocator implements Allocator with two levels of dominant
// resource fairness: roles are ranked against each other over the whole
// cluster, then frameworks within each role. All state below is owned by
// the single goroutine started in Start, which is why none of it is
// locked.
type hierarchicalAllocator struct {
	config        *Config
	clock         clock.Clock
	offerCallback OfferCallback
	metrics       *Metrics

	lifeCycle  lifecycle.LifeCycle
	eventQueue queue.Queue
	// Guards against overlapping allocation runs if a future caller
	// dispatches one from outside the event loop.
	isAllocating uat.Bool

	clusterTotal *scalar.Resources
	slaves       map[string]*slave
	frameworks   map[string]*framework

	roleSorter       sorter.Sorter
	frameworkSorters map[string]sorter.Sorter

	// filters by framework id.
	filters map[string][]*refusedFilter
	// whitelist of slave hostnames; nil allows all.
	whitelist stringset.StringSet
}

// NewHierarchicalAllocator creates the hierarchical DRF allocator. A nil
// clk uses the wall clock; tests inject a fake clock to drive filter
// expiry and the allocation interval.
func NewHierarchicalAllocator(
	config *Config,
	parent tally.Scope,
	clk clock.Clock,
	callback OfferCallback) Allocator {

	if config == nil {
		config = &Config{}
	}
	cfg := *config
	cfg.normalize()

	if clk == nil {
		clk = clock.NewClock()
	}

	return &hierarchicalAllocator{
		config:        &cfg,
		clock:         clk,
		offerCallback: callback,
		metrics:       NewMetrics(parent.SubScope("allocator")),
		lifeCycle:     lifecycle.NewLifeCycle(),
		eventQueue: queue.NewQueue(
			"allocator-events",
			reflect.TypeOf(event{}),
			cfg.EventQueueSize),
		clusterTotal:     &scalar.Resources{},
		slaves:           make(map[string]*slave),
		frameworks:       make(map[string]*framework),
		roleSorter:       sorter.NewDRFSorter("roles"),
		frameworkSorters: make(map[string]sorter.Sorter),
		filters:          make(map[string][]*refusedFilter),
	}
}

// Start launches the allocation loop.
func (h *hierarchicalAllocator) Start() error {
	if !h.lifeCycle.Start() {
		log.Warn("Allocator is already running, no action will be performed")
		return nil
	}

	started := make(chan int, 1)
	go func() {
		defer h.lifeCycle.StopComplete()

		log.Info("Starting allocation loop")
		close(started)

		ticker := h.clock.NewTicker(h.config.AllocationInterval)
		defer ticker.Stop()

		for {
			select {
			case <-h.lifeCycle.StopCh():
				log.Info("Exiting the allocation loop")
				return
			case <-ticker.C():
				if err := h.eventQueue.Enqueue(&event{kind: eventAllocate}); err != nil {
					log.WithError(err).Warn("Failed to enqueue the periodic allocation")
				}
			default:
			}

			item, err := h.eventQueue.Dequeue(dequeueWaitTime)
			if err != nil {
				// Timeout; loop around to re-check stop and tick.
				continue
			}
			if h.handleEvent(item.(*event)) {
				h.allocate()
			}
		}
	}()
	// Wait until the goroutine is started.
	<-started
	return nil
}

// Stop terminates the allocation loop and waits for it to exit.
func (h *hierarchicalAllocator) Stop() error {
	if !h.lifeCycle.Stop() {
		log.Warn("Allocator is already stopped, no action will be performed")
		return nil
	}
	h.lifeCycle.Wait()
	log.Info("Allocator stopped")
	return nil
}

// handleEvent dispatches one mailbox message and reports whether the state
// change could unlock new offers, in which case an allocation run follows.
func (h *hierarchicalAllocator) handleEvent(ev *event) bool {
	log.WithField("event", ev.kind.String()).Debug("Processing allocator event")

	switch ev.kind {
	case eventAllocate:
		return true
	case eventFrameworkAdded:
		return h.frameworkAdded(ev.frameworkID, ev.frameworkInfo, ev.used)
	case eventFrameworkRemoved:
		return h.frameworkRemoved(ev.frameworkID)
	case eventFrameworkActivated:
		return h.frameworkActivated(ev.frameworkID)
	case eventFrameworkDeactivated:
		return h.frameworkDeactivated(ev.frameworkID)
	case eventSlaveAdded:
		return h.slaveAdded(ev.slaveID, ev.slaveInfo, ev.resources, ev.ports)
	case eventSlaveRemoved:
		return h.slaveRemoved(ev.slaveID)
	case eventResourcesUnused:
		return h.resourcesUnused(ev.frameworkID, ev.slaveID, ev.resources, ev.ports, ev.filterDuration)
	case eventResourcesRecovered:
		return h.resourcesRecovered(ev.frameworkID, ev.slaveID, ev.resources, ev.ports)
	case eventUpdateWhitelist:
		return h.updateWhitelist(ev.whitelist)
	case eventExpireFilter:
		return h.expireFilter(ev.filter)
	}

	log.WithField("kind", int(ev.kind)).Error("Unknown allocator event")
	return false
}

// FrameworkAdded implements Allocator.FrameworkAdded.
func (h *hierarchicalAllocator) FrameworkAdded(
	id string,
	info FrameworkInfo,
	used map[string]*UsedResources) error {
	return h.eventQueue.Enqueue(&event{
		kind:          eventFrameworkAdded,
		frameworkID:   id,
		frameworkInfo: info,
		used:          used,
	})
}

// FrameworkRemoved implements Allocator.FrameworkRemoved.
func (h *hierarchicalAllocator) FrameworkRemoved(id string) error {
	return h.eventQueue.Enqueue(&event{
		kind:        eventFrameworkRemoved,
		frameworkID: id,
	})
}

// FrameworkActivated implements Allocator.FrameworkActivated.
func (h *hierarchicalAllocator) FrameworkActivated(id string) error {
	return h.eventQueue.Enqueue(&event{
		kind:        eventFrameworkActivated,
		frameworkID: id,
	})
}

// FrameworkDeactivated implements Allocator.FrameworkDeactivated.
func (h *hierarchicalAllocator) FrameworkDeactivated(id string) error {
	return h.eventQueue.Enqueue(&event{
		kind:        eventFrameworkDeactivated,
		frameworkID: id,
	})
}

// SlaveAdded implements Allocator.SlaveAdded.
func (h *hierarchicalAllocator) SlaveAdded(
	id string,
	info SlaveInfo,
	total *scalar.Resources,
	ports scalar.Ports) error {
	return h.eventQueue.Enqueue(&event{
		kind:      eventSlaveAdded,
		slaveID:   id,
		slaveInfo: info,
		resources: total,
		ports:     ports,
	})
}

// SlaveRemoved implements Allocator.SlaveRemoved.
func (h *hierarchicalAllocator) SlaveRemoved(id string) error {
	return h.eventQueue.Enqueue(&event{
		kind:    eventSlaveRemoved,
		slaveID: id,
	})
}

// ResourcesUnused implements Allocator.ResourcesUnused.
func (h *hierarchicalAllocator) ResourcesUnused(
	frameworkID, slaveID string,
	res *scalar.Resources,
	ports scalar.Ports,
	filterDuration *time.Duration) error {
	return h.eventQueue.Enqueue(&event{
		kind:           eventResourcesUnused,
		frameworkID:    frameworkID,
		slaveID:        slaveID,
		resources:      res,
		ports:          ports,
		filterDuration: filterDuration,
	})
}

// ResourcesRecovered implements Allocator.ResourcesRecovered.
func (h *hierarchicalAllocator) ResourcesRecovered(
	frameworkID, slaveID string,
	res *scalar.Resources,
	ports scalar.Ports) error {
	return h.eventQueue.Enqueue(&event{
		kind:        eventResourcesRecovered,
		frameworkID: frameworkID,
		slaveID:     slaveID,
		resources:   res,
		ports:       ports,
	})
}

// UpdateWhitelist implements Allocator.UpdateWhitelist.
func (h *hierarchicalAllocator) UpdateWhitelist(hostnames []string) error {
	return h.eventQueue.Enqueue(&event{
		kind:      eventUpdateWhitelist,
		whitelist: hostnames,
	})
}
