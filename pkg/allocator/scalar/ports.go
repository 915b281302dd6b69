package scalar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Ports is a set-valued resource holding individual port numbers. Unlike the
// scalar kinds its arithmetic is exact set arithmetic: adding is union,
// subtracting is difference, and subtracting ports that are not held is an
// error rather than a silent wrong answer.
type Ports map[uint32]bool

// NewPorts creates an empty port set.
func NewPorts() Ports {
	return make(Ports)
}

// PortsFromRanges creates a port set from a list of [begin, end] pairs.
// Both ends are inclusive. A range with end < begin is rejected.
func PortsFromRanges(ranges ...[2]uint32) (Ports, error) {
	res := make(Ports)
	for _, r := range ranges {
		if r[1] < r[0] {
			return nil, errors.Errorf(
				"invalid port range [%d, %d]", r[0], r[1])
		}
		for p := r[0]; p <= r[1]; p++ {
			res[p] = true
		}
	}
	return res, nil
}

// Add returns the union of the current set and the other one.
func (p Ports) Add(other Ports) Ports {
	res := p.Clone()
	for port := range other {
		res[port] = true
	}
	return res
}

// Subtract returns the difference of the current set and the other one.
// Every port being removed must be held, otherwise an error is returned and
// the caller's bookkeeping is left untouched.
func (p Ports) Subtract(other Ports) (Ports, error) {
	res := p.Clone()
	for port := range other {
		if !res[port] {
			return nil, errors.Errorf("port %d is not held", port)
		}
		delete(res, port)
	}
	return res, nil
}

// Contains determines whether every port of the other set is held.
func (p Ports) Contains(other Ports) bool {
	for port := range other {
		if !p[port] {
			return false
		}
	}
	return true
}

// Intersect returns the ports held by both sets.
func (p Ports) Intersect(other Ports) Ports {
	res := make(Ports)
	for port := range other {
		if p[port] {
			res[port] = true
		}
	}
	return res
}

// Equal determines whether both sets hold exactly the same ports.
func (p Ports) Equal(other Ports) bool {
	return len(p) == len(other) && p.Contains(other)
}

// Empty returns whether the set holds no ports.
func (p Ports) Empty() bool {
	return len(p) == 0
}

// Len returns the number of ports held.
func (p Ports) Len() int {
	return len(p)
}

// Clone returns a new copy of the port set.
func (p Ports) Clone() Ports {
	res := make(Ports, len(p))
	for port := range p {
		res[port] = true
	}
	return res
}

// Ranges returns the held ports as a minimal sorted list of inclusive
// [begin, end] pairs.
func (p Ports) Ranges() [][2]uint32 {
	if len(p) == 0 {
		return nil
	}
	sorted := make([]int, 0, len(p))
	for port := range p {
		sorted = append(sorted, int(port))
	}
	sort.Ints(sorted)

	var ranges [][2]uint32
	begin, end := uint32(sorted[0]), uint32(sorted[0])
	for _, next := range sorted[1:] {
		if uint32(next) == end+1 {
			end = uint32(next)
			continue
		}
		ranges = append(ranges, [2]uint32{begin, end})
		begin, end = uint32(next), uint32(next)
	}
	return append(ranges, [2]uint32{begin, end})
}

func (p Ports) String() string {
	var parts []string
	for _, r := range p.Ranges() {
		parts = append(parts, fmt.Sprintf("[%d-%d]", r[0], r[1]))
	}
	return strings.Join(parts, ",")
}
