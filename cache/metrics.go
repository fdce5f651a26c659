package cache

import "time"

// NoopMetrics is a Metrics implementation that does nothing.
// It is the default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                      {}
func (NoopMetrics) Miss()                     {}
func (NoopMetrics) Evict(EvictReason)         {}
func (NoopMetrics) Size(int)                  {}
func (NoopMetrics) Load(time.Duration, error) {}

var _ Metrics = NoopMetrics{}
