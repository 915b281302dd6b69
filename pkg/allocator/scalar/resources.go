package scalar

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
)

// ResourceEpsilon is the smallest difference between two scalar quantities
// that is treated as significant. Comparisons and subtraction clamp anything
// below it to zero so that repeated arithmetic never accumulates float drift
// into the allocation bookkeeping.
const ResourceEpsilon = 1e-9

// Resource kind names understood by the allocator.
const (
	CPU    = "cpu"
	GPU    = "gpu"
	MEMORY = "memory"
	DISK   = "disk"
)

// Kinds lists all scalar resource kinds in a fixed order.
var Kinds = []string{CPU, GPU, MEMORY, DISK}

// ZeroResource is the zero value of a resource vector.
var ZeroResource = &Resources{}

// Resources is a non-thread safe value type holding the recognized scalar
// resources of a slave, an offer or an allocation.
type Resources struct {
	CPU    float64
	MEMORY float64
	DISK   float64
	GPU    float64
}

// GetCPU returns the CPU resource
func (r *Resources) GetCPU() float64 {
	return r.CPU
}

// GetDisk returns the disk resource
func (r *Resources) GetDisk() float64 {
	return r.DISK
}

// GetMem returns the memory resource
func (r *Resources) GetMem() float64 {
	return r.MEMORY
}

// GetGPU returns the GPU resource
func (r *Resources) GetGPU() float64 {
	return r.GPU
}

// Get returns the quantity of the given kind
func (r *Resources) Get(kind string) float64 {
	switch kind {
	case CPU:
		return r.GetCPU()
	case GPU:
		return r.GetGPU()
	case MEMORY:
		return r.GetMem()
	case DISK:
		return r.GetDisk()
	}
	return float64(0)
}

// Set sets the quantity of the given kind
func (r *Resources) Set(kind string, value float64) {
	switch kind {
	case CPU:
		r.CPU = value
	case GPU:
		r.GPU = value
	case MEMORY:
		r.MEMORY = value
	case DISK:
		r.DISK = value
	}
}

// Add returns a new vector with another one added onto the current one.
func (r *Resources) Add(other *Resources) *Resources {
	return &Resources{
		CPU:    r.CPU + other.CPU,
		MEMORY: r.MEMORY + other.MEMORY,
		DISK:   r.DISK + other.DISK,
		GPU:    r.GPU + other.GPU,
	}
}

func lessThanOrEqual(f1, f2 float64) bool {
	v := f1 - f2
	if math.Abs(v) < ResourceEpsilon {
		return true
	}
	return v < 0
}

// LessThanOrEqual determines whether the current vector is less than or
// equal to the other one in every kind.
func (r *Resources) LessThanOrEqual(other *Resources) bool {
	return lessThanOrEqual(r.CPU, other.CPU) &&
		lessThanOrEqual(r.MEMORY, other.MEMORY) &&
		lessThanOrEqual(r.DISK, other.DISK) &&
		lessThanOrEqual(r.GPU, other.GPU)
}

// Contains determines whether the current vector is large enough to contain
// the other one.
func (r *Resources) Contains(other *Resources) bool {
	return other.LessThanOrEqual(r)
}

// Equal determines whether the current vector is equal to the other one.
func (r *Resources) Equal(other *Resources) bool {
	return r.CPU == other.CPU &&
		r.MEMORY == other.MEMORY &&
		r.DISK == other.DISK &&
		r.GPU == other.GPU
}

// NonEmptyFields returns the kinds which hold a significant quantity.
func (r *Resources) NonEmptyFields() []string {
	var nonEmptyFields []string
	for _, kind := range Kinds {
		if math.Abs(r.Get(kind)) > ResourceEpsilon {
			nonEmptyFields = append(nonEmptyFields, kind)
		}
	}
	return nonEmptyFields
}

// Empty returns whether all kinds are empty.
func (r *Resources) Empty() bool {
	return len(r.NonEmptyFields()) == 0
}

// Filter returns a new vector keeping only the kinds accepted by the
// predicate, all other kinds zeroed.
func (r *Resources) Filter(predicate func(kind string, value float64) bool) *Resources {
	result := &Resources{}
	for _, kind := range Kinds {
		if v := r.Get(kind); predicate(kind, v) {
			result.Set(kind, v)
		}
	}
	return result
}

// TrySubtract attempts to subtract another vector from the current one,
// but returns nil if the other one is not contained in it.
func (r *Resources) TrySubtract(other *Resources) *Resources {
	if !r.Contains(other) {
		return nil
	}
	return r.Subtract(other)
}

// Subtract subtracts another vector from the current one and returns a new
// copy of the result. Allocation bookkeeping must never go negative, so a
// subtraction that would underflow clamps the kind at zero and logs: it
// signals a logic error in the caller, not a state to propagate.
func (r *Resources) Subtract(other *Resources) *Resources {
	result := &Resources{}
	for _, kind := range Kinds {
		from := r.Get(kind)
		value := other.Get(kind)
		if from < value-ResourceEpsilon {
			log.WithFields(log.Fields{
				"kind":  kind,
				"from":  from,
				"value": value,
			}).Error("Subtracted value is greater than remaining")
			continue
		}
		diff := from - value
		if diff < ResourceEpsilon {
			diff = float64(0)
		}
		result.Set(kind, diff)
	}
	return result
}

// Min returns the minimum quantity for each kind.
func Min(r1, r2 *Resources) *Resources {
	return &Resources{
		CPU:    math.Min(r1.GetCPU(), r2.GetCPU()),
		MEMORY: math.Min(r1.GetMem(), r2.GetMem()),
		DISK:   math.Min(r1.GetDisk(), r2.GetDisk()),
		GPU:    math.Min(r1.GetGPU(), r2.GetGPU()),
	}
}

// Clone returns a new copy of the current vector.
func (r *Resources) Clone() *Resources {
	return &Resources{
		CPU:    r.CPU,
		DISK:   r.DISK,
		MEMORY: r.MEMORY,
		GPU:    r.GPU,
	}
}

func (r *Resources) String() string {
	return fmt.Sprintf("CPU:%.2f MEM:%.2f DISK:%.2f GPU:%.2f",
		r.GetCPU(), r.GetMem(), r.GetDisk(), r.GetGPU())
}
