package allocator

import (
	"github.com/uber-go/tally"

	"github.com/github4bhavin/mesos/pkg/allocator/scalar"
)

// Metrics tracks various metrics at the allocator level.
type Metrics struct {
	free      scalar.GaugeMaps
	allocated scalar.GaugeMaps

	FrameworkAddEvents        tally.Counter
	FrameworkRemoveEvents     tally.Counter
	FrameworkActivateEvents   tally.Counter
	FrameworkDeactivateEvents tally.Counter
	SlaveAddEvents            tally.Counter
	SlaveRemoveEvents         tally.Counter
	ResourcesUnusedEvents     tally.Counter
	ResourcesRecoveredEvents  tally.Counter
	WhitelistUpdateEvents     tally.Counter

	// Invariant violations reported by handlers, e.g. double adds or
	// recovering more than was allocated.
	InvariantViolations tally.Counter
	// Stale events for ids that no longer exist, absorbed as no-ops.
	StaleEvents tally.Counter

	AllocationRuns   tally.Counter
	AllocationDuration tally.Timer
	OffersDelivered  tally.Counter
	FiltersInstalled tally.Counter
	FiltersExpired   tally.Counter
}

// NewMetrics returns a new Metrics struct, with all metrics initialized
// and rooted at the given tally.Scope
func NewMetrics(scope tally.Scope) *Metrics {
	eventScope := scope.SubScope("events")
	poolScope := scope.SubScope("pool")
	allocationScope := scope.SubScope("allocation")

	return &Metrics{
		free:      scalar.NewGaugeMaps(poolScope.SubScope("free")),
		allocated: scalar.NewGaugeMaps(poolScope.SubScope("allocated")),

		FrameworkAddEvents:        eventScope.Counter("framework_added"),
		FrameworkRemoveEvents:     eventScope.Counter("framework_removed"),
		FrameworkActivateEvents:   eventScope.Counter("framework_activated"),
		FrameworkDeactivateEvents: eventScope.Counter("framework_deactivated"),
		SlaveAddEvents:            eventScope.Counter("slave_added"),
		SlaveRemoveEvents:         eventScope.Counter("slave_removed"),
		ResourcesUnusedEvents:     eventScope.Counter("resources_unused"),
		ResourcesRecoveredEvents:  eventScope.Counter("resources_recovered"),
		WhitelistUpdateEvents:     eventScope.Counter("whitelist_updated"),

		InvariantViolations: scope.Counter("invariant_violations"),
		StaleEvents:         scope.Counter("stale_events"),

		AllocationRuns:     allocationScope.Counter("runs"),
		AllocationDuration: allocationScope.Timer("duration"),
		OffersDelivered:    allocationScope.Counter("offers"),
		FiltersInstalled:   allocationScope.Counter("filters_installed"),
		FiltersExpired:     allocationScope.Counter("filters_expired"),
	}
}
