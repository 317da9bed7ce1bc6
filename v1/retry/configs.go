package retry

import "time"

// Default values for a retry policy.
const (
	DefaultRetryAttempts = 0
	DefaultBaseDelay     = 1000 * time.Millisecond
	DefaultJitterFactor  = 0.1
)

// Config is the user-facing retry configuration as it appears in YAML files
// and component options. Unset fields take their documented default when the
// configuration is resolved with Policy.
//
// Pointers are used so that an explicit zero ("base_delay: 0" for immediate
// retries) can be told apart from an omitted option.
type Config struct {
	// RetryAttempts is the number of additional attempts after the first failure.
	// Default: 0 (the operation is tried once)
	RetryAttempts *int `yaml:"retry_attempts" json:"retryAttempts,omitempty" envconfig:"RETRY_ATTEMPTS"`

	// BaseDelayMs is the base backoff unit in milliseconds.
	// Default: 1000
	BaseDelayMs *float64 `yaml:"base_delay" json:"baseDelay,omitempty" envconfig:"RETRY_BASE_DELAY"`

	// JitterFactor is the fraction of each delay that is randomized, in [0, 1].
	// Default: 0.1
	JitterFactor *float64 `yaml:"jitter_factor" json:"jitterFactor,omitempty" envconfig:"RETRY_JITTER_FACTOR"`
}

// Policy resolves the configuration into a normalized Policy, filling every
// omitted option with its default.
func (c Config) Policy() Policy {
	p := DefaultPolicy()
	if c.RetryAttempts != nil {
		p.RetryAttempts = *c.RetryAttempts
	}
	if c.BaseDelayMs != nil {
		p.BaseDelay = time.Duration(*c.BaseDelayMs * float64(time.Millisecond))
	}
	if c.JitterFactor != nil {
		p.JitterFactor = *c.JitterFactor
	}
	return p.Normalize()
}

// Policy governs a single retried call. It carries no state between calls and
// can be shared freely between goroutines.
type Policy struct {
	// RetryAttempts is the number of retries after the first failure.
	RetryAttempts int

	// BaseDelay is the delay before the first retry when jitter is disabled.
	BaseDelay time.Duration

	// JitterFactor randomizes each delay by up to ±JitterFactor of its value.
	JitterFactor float64
}

// DefaultPolicy returns a policy that tries once, with the default delay and
// jitter that apply as soon as RetryAttempts is raised.
func DefaultPolicy() Policy {
	return Policy{
		RetryAttempts: DefaultRetryAttempts,
		BaseDelay:     DefaultBaseDelay,
		JitterFactor:  DefaultJitterFactor,
	}
}

// Normalize clamps out-of-range values: negative attempts and delays become
// zero and the jitter factor is clamped to [0, 1].
func (p Policy) Normalize() Policy {
	if p.RetryAttempts < 0 {
		p.RetryAttempts = 0
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	switch {
	case p.JitterFactor < 0 || p.JitterFactor != p.JitterFactor: // NaN
		p.JitterFactor = 0
	case p.JitterFactor > 1:
		p.JitterFactor = 1
	}
	return p
}

// WithRetryAttempts returns a copy of the policy with the given attempt count.
func (p Policy) WithRetryAttempts(n int) Policy {
	p.RetryAttempts = n
	return p.Normalize()
}

// WithBaseDelay returns a copy of the policy with the given base delay.
func (p Policy) WithBaseDelay(d time.Duration) Policy {
	p.BaseDelay = d
	return p.Normalize()
}

// WithJitterFactor returns a copy of the policy with the given jitter factor.
func (p Policy) WithJitterFactor(f float64) Policy {
	p.JitterFactor = f
	return p.Normalize()
}

// Bounds returns the smallest and largest delay the policy can produce before
// retry n (0-based).
func (p Policy) Bounds(n int) (time.Duration, time.Duration) {
	p = p.Normalize()
	if n < 0 {
		n = 0
	}
	base := float64(p.BaseDelay)
	for i := 0; i < n; i++ {
		base *= 2
	}
	return time.Duration(base * (1 - p.JitterFactor)), time.Duration(base * (1 + p.JitterFactor))
}
