package models

import (
	"fmt"
	"strings"
)

// EventKeyPrefix namespaces event-log keys in shared key-value stores.
const EventKeyPrefix = "events"

// EventKey is a value object for the (address, class) bucket key.
// It centralizes sanitization so an address containing ':' cannot
// collide with another bucket.
type EventKey struct {
	address string
	class   ClassName
}

// NewEventKey builds the bucket key for one source address and class.
func NewEventKey(address string, class ClassName) EventKey {
	return EventKey{
		address: sanitizeKeySegment(address),
		class:   class,
	}
}

// String returns the formatted key for storage lookup.
func (k EventKey) String() string {
	return fmt.Sprintf("%s:%s:%s", EventKeyPrefix, k.address, sanitizeKeySegment(string(k.class)))
}

// sanitizeKeySegment escapes delimiter characters in key segments.
//
// Escape rules (order matters):
//  1. '_' becomes '__'
//  2. ':' becomes '_c'
//
// IPv6 addresses such as "2001:db8::1" therefore become "2001_cdb8_c_c1",
// and no two distinct inputs produce the same output.
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
