package allocator

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/github4bhavin/mesos/pkg/allocator/scalar"
)

// allocate runs one batch allocation: roles in fairness order, frameworks
// within each role in fairness order, and the first framework reached
// takes all free resources of every eligible slave. Later frameworks only
// see slaves the earlier ones were filtered on, which is what spreads the
// cluster once refusal filters start landing.
func (h *hierarchicalAllocator) allocate() {
	if h.isAllocating.Swap(true) {
		log.Debug("Allocation is already in progress, skipping")
		return
	}
	defer h.isAllocating.Store(false)

	h.metrics.AllocationRuns.Inc(1)
	stopwatch := h.metrics.AllocationDuration.Start()
	defer stopwatch.Stop()

	h.purgeExpiredFilters()

	slaveIDs := h.eligibleSlaves()
	offerCount := 0

	for _, role := range h.roleSorter.Sort() {
		fs, ok := h.frameworkSorters[role]
		if !ok {
			continue
		}
		for _, fwID := range fs.Sort() {
			fw, ok := h.frameworks[fwID]
			if !ok || !fw.active {
				continue
			}

			var offers []*Offer
			for _, slaveID := range slaveIDs {
				s := h.slaves[slaveID]
				free := s.available
				if rf, ok := s.reservedFree[role]; ok {
					free = free.Add(rf)
				}
				freePorts := s.availablePorts
				if free.Empty() && freePorts.Empty() {
					continue
				}
				if h.isFiltered(fwID, slaveID, free, freePorts) {
					continue
				}

				reserved, unreserved, held := s.take(role, free, freePorts)
				a := fw.allocationOn(slaveID)
				a.reserved = a.reserved.Add(reserved)
				a.unreserved = a.unreserved.Add(unreserved)
				a.ports = a.ports.Add(held)
				h.recordAllocated(fw, reserved.Add(unreserved))

				offers = append(offers, &Offer{
					SlaveID:   slaveID,
					Hostname:  s.info.Hostname,
					Resources: free.Clone(),
					Ports:     held,
				})
			}

			if len(offers) == 0 {
				continue
			}
			offerCount += len(offers)
			log.WithFields(log.Fields{
				"framework": fwID,
				"offers":    len(offers),
			}).Debug("Offering resources")
			if h.offerCallback != nil {
				h.offerCallback(fwID, offers)
			}
		}
	}

	h.metrics.OffersDelivered.Inc(int64(offerCount))
	h.updateGauges()
}

// eligibleSlaves returns the ids of whitelisted slaves in a deterministic
// order, so offers within a callback always come sorted by slave id.
func (h *hierarchicalAllocator) eligibleSlaves() []string {
	ids := make([]string, 0, len(h.slaves))
	for id, s := range h.slaves {
		if h.whitelist != nil && !h.whitelist.Contains(s.info.Hostname) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// isFiltered reports whether any of the framework's refusal filters
// suppresses the would-be offer.
func (h *hierarchicalAllocator) isFiltered(
	frameworkID, slaveID string,
	res *scalar.Resources,
	ports scalar.Ports) bool {

	for _, f := range h.filters[frameworkID] {
		if f.suppresses(slaveID, res, ports) {
			return true
		}
	}
	return false
}

// purgeExpiredFilters drops filters past their expiry. The per filter
// timer events usually get there first; this pass catches the rest.
func (h *hierarchicalAllocator) purgeExpiredFilters() {
	now := h.clock.Now()
	for fwID, filters := range h.filters {
		kept := filters[:0]
		for _, f := range filters {
			if f.expired(now) {
				h.metrics.FiltersExpired.Inc(1)
				log.WithField("filter", f).Debug("Purged expired refusal filter")
				continue
			}
			kept = append(kept, f)
		}
		h.filters[fwID] = kept
	}
}

// updateGauges publishes the free and allocated pool sizes.
func (h *hierarchicalAllocator) updateGauges() {
	free := &scalar.Resources{}
	for _, s := range h.slaves {
		free = free.Add(s.freeTotal())
	}
	h.metrics.free.Update(free)
	h.metrics.allocated.Update(h.clusterTotal.Subtract(free))
}
