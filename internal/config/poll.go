package config

import "time"

// PollConfig controls the state view's periodic refresh.  Each wait is
// Interval plus a random offset in [0, Jitter) so a fleet of gateways does
// not hit the upstream in lockstep.
type PollConfig struct {
	Interval time.Duration
	Jitter   time.Duration
}

func LoadPollConfig() PollConfig {
	cfg := PollConfig{
		Interval: envDur("POLL_INTERVAL", 30*time.Second),
		Jitter:   envDur("POLL_JITTER", 3*time.Second),
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return cfg
}
