// Package events holds the event-log backends: the hosted REST table, Postgres,
// Redis sorted sets and an in-process store, plus a load-shedding decorator.
package events

import "confide/internal/ratelimit/ports"

var (
	_ ports.EventLog = (*RESTStore)(nil)
	_ ports.EventLog = (*PostgresStore)(nil)
	_ ports.EventLog = (*RedisStore)(nil)
	_ ports.EventLog = (*InMemoryStore)(nil)
	_ ports.EventLog = (*Throttled)(nil)

	_ ports.Pruner = (*PostgresStore)(nil)
	_ ports.Pruner = (*InMemoryStore)(nil)
)
