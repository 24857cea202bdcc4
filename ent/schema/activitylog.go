package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ActivityLog is the append-only audit trail of hospital actions.
type ActivityLog struct {
	ent.Schema
}

// Fields of the ActivityLog.
func (ActivityLog) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("hospital_id"),
		field.String("action"),
		field.String("entity_type"),
		field.String("entity_id"),
		field.String("description"),
		field.String("performed_by"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ActivityLog.
func (ActivityLog) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("hospital", Hospital.Type).
			Ref("activity_logs").
			Field("hospital_id").
			Unique().
			Required(),
	}
}

// Indexes of the ActivityLog.
func (ActivityLog) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("hospital_id", "created_at"),
	}
}
