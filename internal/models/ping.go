package models

import "time"

// PingRequest is a liveness query sent on the lock channel
type PingRequest struct {
	Nonce         string
	RequestTime   time.Time
	ResponseCount int
}

// Expired checks if the request outlived the timeout
func (p PingRequest) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(p.RequestTime) > timeout
}
