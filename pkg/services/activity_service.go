package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cyno-health/cyno/ent"
	"github.com/cyno-health/cyno/ent/activitylog"
)

// ActivityService writes the append-only audit trail. Logging must never
// fail a request, so Log swallows errors after a log line.
type ActivityService struct {
	client *ent.Client
	logger *slog.Logger
}

// NewActivityService creates a new ActivityService.
func NewActivityService(client *ent.Client) *ActivityService {
	return &ActivityService{client: client, logger: slog.Default()}
}

// LogEntry describes one audit event.
type LogEntry struct {
	HospitalID  string
	Action      string
	EntityType  string
	EntityID    string
	Description string
	PerformedBy string
}

// Log appends an audit entry, best effort.
func (s *ActivityService) Log(ctx context.Context, entry LogEntry) {
	if entry.PerformedBy == "" {
		entry.PerformedBy = "Hospital Staff"
	}
	err := s.client.ActivityLog.Create().
		SetID(uuid.New().String()).
		SetHospitalID(entry.HospitalID).
		SetAction(entry.Action).
		SetEntityType(entry.EntityType).
		SetEntityID(entry.EntityID).
		SetDescription(entry.Description).
		SetPerformedBy(entry.PerformedBy).
		Exec(ctx)
	if err != nil {
		s.logger.Warn("Failed to write activity log",
			"action", entry.Action, "entity_id", entry.EntityID, "error", err)
	}
}

// List returns a hospital's activity, newest first.
func (s *ActivityService) List(ctx context.Context, hospitalID string, offset, limit int) ([]*ent.ActivityLog, error) {
	return s.client.ActivityLog.Query().
		Where(activitylog.HospitalIDEQ(hospitalID)).
		Order(ent.Desc(activitylog.FieldCreatedAt)).
		Offset(offset).
		Limit(limit).
		All(ctx)
}
