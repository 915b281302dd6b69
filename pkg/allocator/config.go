package allocator

import (
	"time"

	common_config "github.com/github4bhavin/mesos/pkg/common/config"
)

const (
	defaultAllocationInterval = 1 * time.Second
	// Matches the refuse timeout schedulers historically saw when they
	// declined an offer without an explicit duration.
	defaultFilterTimeout  = 5 * time.Second
	defaultEventQueueSize = 10000
)

// Config is the allocator specific configuration
type Config struct {
	// Period between two batch allocation runs
	AllocationInterval time.Duration `yaml:"allocation_interval" validate:"min=0"`
	// How long unused resources stay suppressed for the framework that
	// declined them, when the framework gives no explicit duration
	FilterTimeout time.Duration `yaml:"filter_timeout" validate:"min=0"`
	// Capacity of the inbound event queue
	EventQueueSize uint32 `yaml:"event_queue_size"`
	// Per role weights for the cross role fairness level; roles not
	// listed weigh 1
	RoleWeights map[string]float64 `yaml:"role_weights"`
}

// normalize fills in defaults for unset fields.
func (c *Config) normalize() {
	if c.AllocationInterval <= 0 {
		c.AllocationInterval = defaultAllocationInterval
	}
	if c.FilterTimeout <= 0 {
		c.FilterTimeout = defaultFilterTimeout
	}
	if c.EventQueueSize == 0 {
		c.EventQueueSize = defaultEventQueueSize
	}
}

// roleWeight returns the configured weight for a role, defaulting to 1.
func (c *Config) roleWeight(role string) float64 {
	if w, ok := c.RoleWeights[role]; ok && w > 0 {
		return w
	}
	return 1.0
}

// LoadConfig loads the allocator configuration from the given YAML files,
// merging them in order.
func LoadConfig(configFiles ...string) (*Config, error) {
	config := &Config{}
	if err := common_config.Parse(config, configFiles...); err != nil {
		return nil, err
	}
	config.normalize()
	return config, nil
}
