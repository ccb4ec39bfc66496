// Package ratelimit keeps remote table traffic inside the store's quota.
//
// SlidingWindow is a call log admitting at most N calls per window. Governor
// wraps it with a fixed pause after every call and a bounded retry loop for
// throttled calls. Tests drive both with FakeClock.
package ratelimit
