package allocator

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/github4bhavin/mesos/pkg/allocator/scalar"
	"github.com/github4bhavin/mesos/pkg/allocator/sorter"
	"github.com/github4bhavin/mesos/pkg/common/stringset"
)

// The handlers below run on the allocator goroutine only. Each returns
// whether the state change could unlock new offers; handleEvent follows a
// true return with an allocation run.

func (h *hierarchicalAllocator) frameworkAdded(
	id string,
	info FrameworkInfo,
	used map[string]*UsedResources) bool {

	h.metrics.FrameworkAddEvents.Inc(1)

	if _, ok := h.frameworks[id]; ok {
		h.metrics.InvariantViolations.Inc(1)
		log.WithField("framework", id).Error("Framework is already added")
		return false
	}

	role := info.Role
	if role == "" {
		role = DefaultRole
	}
	weight := info.Weight
	if weight <= 0 {
		weight = 1.0
	}

	fs := h.ensureRole(role)

	fw := &framework{
		id:          id,
		info:        info,
		role:        role,
		weight:      weight,
		active:      true,
		allocations: make(map[string]*allocation),
	}
	if err := fs.Add(id, weight); err != nil {
		log.WithError(err).WithField("framework", id).
			Error("Failed to register framework with its role sorter")
	}
	h.frameworks[id] = fw

	// Seed resources the framework already holds, e.g. tasks that
	// survived a master failover.
	for slaveID, u := range used {
		s, ok := h.slaves[slaveID]
		if !ok {
			h.metrics.StaleEvents.Inc(1)
			log.WithFields(log.Fields{
				"framework": id,
				"slave":     slaveID,
			}).Warn("Dropping used resources on an unknown slave")
			continue
		}
		res := u.Resources
		if res == nil {
			res = &scalar.Resources{}
		}
		ports := u.Ports
		if ports == nil {
			ports = scalar.NewPorts()
		}
		reserved, unreserved, held := s.take(role, res, ports)
		a := fw.allocationOn(slaveID)
		a.reserved = a.reserved.Add(reserved)
		a.unreserved = a.unreserved.Add(unreserved)
		a.ports = a.ports.Add(held)
		h.recordAllocated(fw, reserved.Add(unreserved))
	}

	log.WithFields(log.Fields{
		"framework": id,
		"role":      role,
		"weight":    weight,
	}).Info("Added framework")
	return true
}

func (h *hierarchicalAllocator) frameworkRemoved(id string) bool {
	h.metrics.FrameworkRemoveEvents.Inc(1)

	fw, ok := h.frameworks[id]
	if !ok {
		h.metrics.StaleEvents.Inc(1)
		log.WithField("framework", id).Debug("Removal of an unknown framework")
		return false
	}

	freed := false
	for slaveID, a := range fw.allocations {
		s, ok := h.slaves[slaveID]
		if !ok {
			continue
		}
		s.give(fw.role, a.reserved, a.unreserved, a.ports)
		freed = freed || !a.empty()
	}
	h.recordUnallocated(fw, fw.totalAllocation())

	if fs, ok := h.frameworkSorters[fw.role]; ok {
		fs.Remove(id)
		if fs.Count() == 0 {
			h.roleSorter.Remove(fw.role)
			delete(h.frameworkSorters, fw.role)
		}
	}

	delete(h.filters, id)
	delete(h.frameworks, id)

	log.WithField("framework", id).Info("Removed framework")
	return freed
}

func (h *hierarchicalAllocator) frameworkActivated(id string) bool {
	h.metrics.FrameworkActivateEvents.Inc(1)

	fw, ok := h.frameworks[id]
	if !ok {
		h.metrics.StaleEvents.Inc(1)
		return false
	}
	fw.active = true
	log.WithField("framework", id).Info("Activated framework")
	return true
}

func (h *hierarchicalAllocator) frameworkDeactivated(id string) bool {
	h.metrics.FrameworkDeactivateEvents.Inc(1)

	fw, ok := h.frameworks[id]
	if !ok {
		h.metrics.StaleEvents.Inc(1)
		return false
	}
	fw.active = false
	log.WithField("framework", id).Info("Deactivated framework")
	return false
}

func (h *hierarchicalAllocator) slaveAdded(
	id string,
	info SlaveInfo,
	total *scalar.Resources,
	ports scalar.Ports) bool {

	h.metrics.SlaveAddEvents.Inc(1)

	if _, ok := h.slaves[id]; ok {
		h.metrics.InvariantViolations.Inc(1)
		log.WithField("slave", id).Error("Slave is already added")
		return false
	}
	if total == nil {
		total = &scalar.Resources{}
	}
	if ports == nil {
		ports = scalar.NewPorts()
	}

	reservedSum := &scalar.Resources{}
	for _, res := range info.Reserved {
		reservedSum = reservedSum.Add(res)
	}
	reservedFree := make(map[string]*scalar.Resources)
	if total.Contains(reservedSum) {
		for role, res := range info.Reserved {
			reservedFree[role] = res.Clone()
		}
	} else {
		h.metrics.InvariantViolations.Inc(1)
		log.WithFields(log.Fields{
			"slave":    id,
			"total":    total,
			"reserved": reservedSum,
		}).Error("Reservations exceed the slave total, dropping them")
		reservedSum = &scalar.Resources{}
	}

	s := &slave{
		id:             id,
		info:           info,
		total:          total.Clone(),
		totalPorts:     ports.Clone(),
		available:      total.Subtract(reservedSum),
		availablePorts: ports.Clone(),
		reservedFree:   reservedFree,
	}
	h.slaves[id] = s

	h.clusterTotal = h.clusterTotal.Add(total)
	h.roleSorter.AddTotal(total)
	for _, fs := range h.frameworkSorters {
		fs.AddTotal(total)
	}

	log.WithFields(log.Fields{
		"slave":    id,
		"hostname": info.Hostname,
		"total":    total,
	}).Info("Added slave")
	return true
}

func (h *hierarchicalAllocator) slaveRemoved(id string) bool {
	h.metrics.SlaveRemoveEvents.Inc(1)

	s, ok := h.slaves[id]
	if !ok {
		h.metrics.StaleEvents.Inc(1)
		log.WithField("slave", id).Debug("Removal of an unknown slave")
		return false
	}

	for _, fw := range h.frameworks {
		a, ok := fw.allocations[id]
		if !ok {
			continue
		}
		h.recordUnallocated(fw, a.total())
		delete(fw.allocations, id)
	}

	for fwID, filters := range h.filters {
		kept := filters[:0]
		for _, f := range filters {
			if f.slaveID != id {
				kept = append(kept, f)
			}
		}
		h.filters[fwID] = kept
	}

	h.clusterTotal = h.clusterTotal.Subtract(s.total)
	h.roleSorter.SubtractTotal(s.total)
	for _, fs := range h.frameworkSorters {
		fs.SubtractTotal(s.total)
	}
	delete(h.slaves, id)

	log.WithField("slave", id).Info("Removed slave")
	return false
}

func (h *hierarchicalAllocator) resourcesUnused(
	frameworkID, slaveID string,
	res *scalar.Resources,
	ports scalar.Ports,
	filterDuration *time.Duration) bool {

	h.metrics.ResourcesUnusedEvents.Inc(1)

	if res == nil {
		res = &scalar.Resources{}
	}
	if ports == nil {
		ports = scalar.NewPorts()
	}

	freed := h.returnResources(frameworkID, slaveID, res, ports)

	// Install the refusal filter even when the return itself was clamped:
	// the framework made clear it does not want these resources for now.
	if fw, ok := h.frameworks[frameworkID]; ok {
		duration := h.config.FilterTimeout
		if filterDuration != nil {
			duration = *filterDuration
		}
		if duration > 0 && (!res.Empty() || !ports.Empty()) {
			f := &refusedFilter{
				frameworkID: fw.id,
				slaveID:     slaveID,
				resources:   res.Clone(),
				ports:       ports.Clone(),
				expiry:      h.clock.Now().Add(duration),
			}
			h.filters[fw.id] = append(h.filters[fw.id], f)
			h.metrics.FiltersInstalled.Inc(1)
			h.scheduleFilterExpiry(f, duration)
			log.WithField("filter", f).Debug("Installed refusal filter")
		}
	}
	return freed
}

func (h *hierarchicalAllocator) resourcesRecovered(
	frameworkID, slaveID string,
	res *scalar.Resources,
	ports scalar.Ports) bool {

	h.metrics.ResourcesRecoveredEvents.Inc(1)

	if res == nil {
		res = &scalar.Resources{}
	}
	if ports == nil {
		ports = scalar.NewPorts()
	}
	return h.returnResources(frameworkID, slaveID, res, ports)
}

// returnResources moves resources from a framework's allocation back to
// the slave's free pools. When the framework is gone the slave pool alone
// is updated, clamped against what the slave can still absorb, so a late
// return after frameworkRemoved already gave everything back cannot
// inflate the pool.
func (h *hierarchicalAllocator) returnResources(
	frameworkID, slaveID string,
	res *scalar.Resources,
	ports scalar.Ports) bool {

	s, ok := h.slaves[slaveID]
	if !ok {
		h.metrics.StaleEvents.Inc(1)
		log.WithFields(log.Fields{
			"framework": frameworkID,
			"slave":     slaveID,
		}).Debug("Return of resources on an unknown slave")
		return false
	}

	fw, ok := h.frameworks[frameworkID]
	if !ok || fw.allocations[slaveID] == nil {
		if !ok {
			h.metrics.StaleEvents.Inc(1)
		}
		return h.returnToPool(s, res, ports)
	}

	a := fw.allocations[slaveID]
	reservedBack := scalar.Min(res, a.reserved)
	unreservedBack := scalar.Min(res.Subtract(reservedBack), a.unreserved)
	back := reservedBack.Add(unreservedBack)
	if !back.Equal(res) {
		h.metrics.InvariantViolations.Inc(1)
		log.WithFields(log.Fields{
			"framework": frameworkID,
			"slave":     slaveID,
			"returned":  res,
			"held":      a.total(),
		}).Error("Returning more than the framework holds, clamping")
	}
	portsBack := a.ports.Intersect(ports)
	if portsBack.Len() != ports.Len() {
		h.metrics.InvariantViolations.Inc(1)
		log.WithFields(log.Fields{
			"framework": frameworkID,
			"slave":     slaveID,
			"ports":     ports,
		}).Error("Returning ports the framework does not hold, clamping")
	}

	a.reserved = a.reserved.Subtract(reservedBack)
	a.unreserved = a.unreserved.Subtract(unreservedBack)
	remaining, _ := a.ports.Subtract(portsBack)
	a.ports = remaining
	if a.empty() {
		delete(fw.allocations, slaveID)
	}

	s.give(fw.role, reservedBack, unreservedBack, portsBack)
	h.recordUnallocated(fw, back)
	return !back.Empty() || !portsBack.Empty()
}

// returnToPool absorbs a return with no framework bookkeeping left to
// check it against. The slave total minus what is free minus what live
// frameworks still hold bounds how much can really be outstanding.
func (h *hierarchicalAllocator) returnToPool(
	s *slave,
	res *scalar.Resources,
	ports scalar.Ports) bool {

	outstanding := &scalar.Resources{}
	outstandingPorts := scalar.NewPorts()
	for _, fw := range h.frameworks {
		if a, ok := fw.allocations[s.id]; ok {
			outstanding = outstanding.Add(a.total())
			outstandingPorts = outstandingPorts.Add(a.ports)
		}
	}
	headroom := s.total.Subtract(s.freeTotal()).Subtract(outstanding)
	back := scalar.Min(res, headroom)
	if !back.Equal(res) {
		h.metrics.InvariantViolations.Inc(1)
		log.WithFields(log.Fields{
			"slave":    s.id,
			"returned": res,
			"headroom": headroom,
		}).Warn("Clamping a late resource return against the slave capacity")
	}

	portHeadroom, _ := s.totalPorts.Subtract(s.availablePorts.Add(outstandingPorts))
	portsBack := portHeadroom.Intersect(ports)

	s.give("", scalar.ZeroResource, back, portsBack)
	return !back.Empty() || !portsBack.Empty()
}

func (h *hierarchicalAllocator) updateWhitelist(hostnames []string) bool {
	h.metrics.WhitelistUpdateEvents.Inc(1)

	if hostnames == nil {
		h.whitelist = nil
		log.Info("Cleared the slave whitelist, all slaves are eligible")
		return true
	}

	set := stringset.New()
	for _, hostname := range hostnames {
		hostname = strings.TrimSpace(hostname)
		if hostname == "" {
			log.Warn("Skipping an empty hostname in the whitelist")
			continue
		}
		set.Add(hostname)
	}
	if len(hostnames) > 0 && len(set.ToSlice()) == 0 {
		// Every entry was malformed; keep the previous whitelist.
		h.metrics.InvariantViolations.Inc(1)
		log.Error("Rejecting a whitelist update with no usable hostnames")
		return false
	}
	h.whitelist = set

	log.WithField("hostnames", set.ToSlice()).Info("Updated the slave whitelist")
	return true
}

// expireFilter removes one filter by identity. The filter may already be
// gone if a lazy purge at the start of an allocation run beat the timer.
func (h *hierarchicalAllocator) expireFilter(f *refusedFilter) bool {
	filters, ok := h.filters[f.frameworkID]
	if !ok {
		return false
	}
	for i, candidate := range filters {
		if candidate == f {
			h.filters[f.frameworkID] = append(filters[:i], filters[i+1:]...)
			h.metrics.FiltersExpired.Inc(1)
			log.WithField("filter", f).Debug("Expired refusal filter")
			return true
		}
	}
	return false
}

// scheduleFilterExpiry arranges an expiry event so an unfiltered slave
// does not wait for the next natural allocation to be reoffered.
func (h *hierarchicalAllocator) scheduleFilterExpiry(f *refusedFilter, d time.Duration) {
	go func() {
		timer := h.clock.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C():
			if err := h.eventQueue.Enqueue(&event{kind: eventExpireFilter, filter: f}); err != nil {
				log.WithError(err).WithField("filter", f).
					Warn("Failed to enqueue the filter expiry")
			}
		case <-h.lifeCycle.StopCh():
		}
	}()
}

// ensureRole lazily creates the sorter state for a role the first time a
// framework of that role registers.
func (h *hierarchicalAllocator) ensureRole(role string) sorter.Sorter {
	if fs, ok := h.frameworkSorters[role]; ok {
		return fs
	}
	if err := h.roleSorter.Add(role, h.config.roleWeight(role)); err != nil {
		log.WithError(err).WithField("role", role).
			Error("Failed to register role with the role sorter")
	}
	fs := sorter.NewDRFSorter(role)
	fs.AddTotal(h.clusterTotal)
	h.frameworkSorters[role] = fs
	return fs
}

// recordAllocated updates both fairness levels after handing resources to
// a framework.
func (h *hierarchicalAllocator) recordAllocated(fw *framework, delta *scalar.Resources) {
	if fs, ok := h.frameworkSorters[fw.role]; ok {
		if err := fs.Allocated(fw.id, delta); err != nil {
			log.WithError(err).WithField("framework", fw.id).
				Error("Failed to record allocation")
		}
	}
	if err := h.roleSorter.Allocated(fw.role, delta); err != nil {
		log.WithError(err).WithField("role", fw.role).
			Error("Failed to record role allocation")
	}
}

// recordUnallocated updates both fairness levels after a framework gave
// resources back.
func (h *hierarchicalAllocator) recordUnallocated(fw *framework, delta *scalar.Resources) {
	if fs, ok := h.frameworkSorters[fw.role]; ok {
		if err := fs.Unallocated(fw.id, delta); err != nil {
			h.metrics.InvariantViolations.Inc(1)
			log.WithError(err).WithField("framework", fw.id).
				Error("Failed to record deallocation")
		}
	}
	if err := h.roleSorter.Unallocated(fw.role, delta); err != nil {
		h.metrics.InvariantViolations.Inc(1)
		log.WithError(err).WithField("role", fw.role).
			Error("Failed to record role deallocation")
	}
}
