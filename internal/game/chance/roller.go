package chance

import "go.uber.org/zap"

// resolution is the granularity of probability checks.
const resolution = 1_000_000

// Never and Always are sequence values that force Chance outcomes.
const (
	Always = 0
	Never  = resolution - 1
)

// Roller wraps a Source and logger to provide logged random decisions.
// All draws are logged at debug level with their label and outcome.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller that draws from src and logs each draw to logger.
// A nil logger disables logging.
//
// Precondition: src must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Chance reports whether an event with probability p happens.
//
// Postcondition: p <= 0 always returns false; p >= 1 always returns true.
func (r *Roller) Chance(label string, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	draw := r.src.Intn(resolution)
	hit := float64(draw) < p*resolution
	r.logger.Debug("chance roll",
		zap.String("label", label),
		zap.Float64("p", p),
		zap.Int("draw", draw),
		zap.Bool("hit", hit),
	)
	return hit
}

// Pick returns a uniform index in [0, n).
//
// Precondition: n > 0.
func (r *Roller) Pick(label string, n int) int {
	v := r.src.Intn(n)
	r.logger.Debug("pick roll",
		zap.String("label", label),
		zap.Int("n", n),
		zap.Int("value", v),
	)
	return v
}

// Between returns a uniform int in [lo, hi].
//
// Precondition: lo <= hi.
func (r *Roller) Between(label string, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Pick(label, hi-lo+1)
}
