package sorter

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/github4bhavin/mesos/pkg/allocator/scalar"
	common_sorter "github.com/github4bhavin/mesos/pkg/common/sorter"
)

// clientInfo is the per-client state tracked by the DRF sorter.
type clientInfo struct {
	id         string
	weight     float64
	allocation *scalar.Resources
	// index is the registration order, used as the deterministic
	// tie-break between clients with equal dominant share.
	index int
	// share is the dominant share, refreshed on every Sort.
	share float64
}

// drfSorter orders clients ascending by dominant share: the maximum over
// all resource kinds of allocated/total, divided by the client's weight.
type drfSorter struct {
	name      string
	total     *scalar.Resources
	clients   map[string]*clientInfo
	nextIndex int
}

// NewDRFSorter creates a sorter implementing dominant resource fairness for
// the named scheduling domain.
func NewDRFSorter(name string) Sorter {
	return &drfSorter{
		name:    name,
		total:   &scalar.Resources{},
		clients: make(map[string]*clientInfo),
	}
}

func (d *drfSorter) Add(client string, weight float64) error {
	if _, ok := d.clients[client]; ok {
		return errors.Errorf(
			"client %v is already in sorter %v", client, d.name)
	}
	if weight <= 0 {
		return errors.Errorf(
			"invalid weight %v for client %v", weight, client)
	}
	d.clients[client] = &clientInfo{
		id:         client,
		weight:     weight,
		allocation: &scalar.Resources{},
		index:      d.nextIndex,
	}
	d.nextIndex++
	return nil
}

func (d *drfSorter) Remove(client string) {
	if _, ok := d.clients[client]; !ok {
		log.WithFields(log.Fields{
			"sorter": d.name,
			"client": client,
		}).Debug("Removing unknown client from sorter")
		return
	}
	delete(d.clients, client)
}

func (d *drfSorter) Contains(client string) bool {
	_, ok := d.clients[client]
	return ok
}

func (d *drfSorter) Count() int {
	return len(d.clients)
}

func (d *drfSorter) Allocated(client string, delta *scalar.Resources) error {
	info, ok := d.clients[client]
	if !ok {
		return errors.Errorf(
			"client %v is not in sorter %v", client, d.name)
	}
	info.allocation = info.allocation.Add(delta)
	return nil
}

func (d *drfSorter) Unallocated(client string, delta *scalar.Resources) error {
	info, ok := d.clients[client]
	if !ok {
		return errors.Errorf(
			"client %v is not in sorter %v", client, d.name)
	}
	if !info.allocation.Contains(delta) {
		// Caller bug: clamp instead of letting the share go negative.
		log.WithFields(log.Fields{
			"sorter":     d.name,
			"client":     client,
			"allocation": info.allocation,
			"delta":      delta,
		}).Error("Unallocating more than the tracked allocation")
		info.allocation = info.allocation.Subtract(delta)
		return errors.Errorf(
			"client %v unallocation exceeds its allocation", client)
	}
	info.allocation = info.allocation.Subtract(delta)
	return nil
}

func (d *drfSorter) Allocation(client string) *scalar.Resources {
	info, ok := d.clients[client]
	if !ok {
		return &scalar.Resources{}
	}
	return info.allocation.Clone()
}

func (d *drfSorter) AddTotal(delta *scalar.Resources) {
	d.total = d.total.Add(delta)
}

func (d *drfSorter) SubtractTotal(delta *scalar.Resources) {
	d.total = d.total.Subtract(delta)
}

func (d *drfSorter) Total() *scalar.Resources {
	return d.total.Clone()
}

func (d *drfSorter) Sort() []string {
	list := make([]interface{}, 0, len(d.clients))
	for _, info := range d.clients {
		info.share = d.dominantShare(info)
		list = append(list, info)
	}

	byShare := func(c1, c2 interface{}) bool {
		return c1.(*clientInfo).share < c2.(*clientInfo).share
	}
	byIndex := func(c1, c2 interface{}) bool {
		return c1.(*clientInfo).index < c2.(*clientInfo).index
	}
	common_sorter.OrderedBy(byShare, byIndex).Sort(list)

	result := make([]string, 0, len(list))
	for _, item := range list {
		result = append(result, item.(*clientInfo).id)
	}
	return result
}

// dominantShare computes max over kinds of allocated/total, divided by the
// client's weight. Kinds absent from the pool do not contribute.
func (d *drfSorter) dominantShare(info *clientInfo) float64 {
	share := float64(0)
	for _, kind := range scalar.Kinds {
		total := d.total.Get(kind)
		if total <= scalar.ResourceEpsilon {
			continue
		}
		if s := info.allocation.Get(kind) / total; s > share {
			share = s
		}
	}
	return share / info.weight
}
