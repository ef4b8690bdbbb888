package constants

import "time"

const (
	DefaultProbeTimeout = 15 * time.Second
	DefaultPollInterval = 5 * time.Second
	DefaultClaimBatch   = 10
	MaxClaimBatch       = 50
)
