package collector

import (
	"context"
	"time"
)

// Option applies options to collector
type Option func(*collector)

// WithMetrics add more feature to collector
func WithMetrics(cs ...Collector) Option {
	return func(c *collector) {
		c.collectors = append(c.collectors, cs...)
	}
}

// WithTimeout sets timeout for talking to routers
func WithTimeout(d time.Duration) Option {
	return func(c *collector) {
		c.timeout = d
	}
}

// WithTLS enables TLS
func WithTLS(insecure bool) Option {
	return func(c *collector) {
		c.enableTLS = true
		c.insecureTLS = insecure
	}
}

// WithContext attaches the scrape request's context, so in-flight
// commands are abandoned when the caller disconnects.
func WithContext(ctx context.Context) Option {
	return func(c *collector) {
		c.ctx = ctx
	}
}
