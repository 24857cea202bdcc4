package database

import (
	"context"
	"database/sql"
	"time"
)

// Status is the database portion of the /api/health payload. Latency is the
// measured ping round-trip; the pool numbers let operators spot connection
// exhaustion while long document-analysis jobs hold the pool open.
type Status struct {
	Healthy     bool  `json:"healthy"`
	LatencyMS   int64 `json:"latency_ms"`
	Connections struct {
		Open        int   `json:"open"`
		InUse       int   `json:"in_use"`
		Idle        int   `json:"idle"`
		MaxOpen     int   `json:"max_open"`
		WaitedTotal int64 `json:"waited_total"`
	} `json:"connections"`
}

// Check pings the database and snapshots pool statistics. On ping failure
// the returned Status still carries the measured latency so the health
// endpoint can report how long the failure took.
func Check(ctx context.Context, db *sql.DB) (*Status, error) {
	start := time.Now()
	err := db.PingContext(ctx)

	status := &Status{
		Healthy:   err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
	}

	stats := db.Stats()
	status.Connections.Open = stats.OpenConnections
	status.Connections.InUse = stats.InUse
	status.Connections.Idle = stats.Idle
	status.Connections.MaxOpen = stats.MaxOpenConnections
	status.Connections.WaitedTotal = stats.WaitCount

	return status, err
}
