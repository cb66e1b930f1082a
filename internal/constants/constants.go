package constants

import "time"

const (
	// Scheduler cadences
	DefaultFastTick = 1 * time.Second
	DefaultSlowTick = 10 * time.Second

	// Dialog timeouts
	DefaultInteractionTimeout = 2 * time.Minute
	// The first wait of an approval request is longer since the user may not notice it
	ApprovalInitialTimeoutFactor = 20

	// Lock channel protocol
	LockChannelName    = "chunka-bank-lock-channel"
	PingRequestTimeout = 20 * time.Second

	// Network constants
	DefaultTimeout          = 30
	DefaultRetryCount       = 3
	DefaultRetryWaitTime    = 1
	DefaultRetryMaxWaitTime = 5

	// The directory is reported stale after this many slow ticks without a successful refresh
	DirectoryStaleTicks = 6

	// Message size limits
	DefaultMessageLimit  = 2000
	TelegramMessageLimit = 4096
	ContinuationMarker   = "…more…"

	// Formatting constants
	TimestampFormat = "2006-01-02 15:04:05"
	AmountWidth     = 10

	// Redis keys
	BookmarksKey = "chunkabank:bookmarks"
)
