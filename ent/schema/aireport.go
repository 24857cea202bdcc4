package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// AIReport holds a document-analysis job for one patient. The merged
// analysis result is serialized as JSON into key_findings; the core treats
// that column as opaque.
type AIReport struct {
	ent.Schema
}

// Fields of the AIReport.
func (AIReport) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("patient_id"),
		field.Enum("status").
			Values("queued", "processing", "completed", "failed", "cancelled").
			Default("queued"),
		field.Int("progress_percent").
			Default(0),
		field.String("progress_message").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Nillable(),
		field.Text("key_findings").
			Optional().
			Nillable().
			Comment("Serialized document-analysis result (opaque JSON)"),
		field.Int("report_count").
			Default(0),
		field.Int("estimated_seconds").
			Optional().
			Nillable(),
		field.Time("generated_at").
			Default(time.Now).
			Immutable().
			Comment("When the job was submitted"),
		field.Time("started_at").
			Optional().
			Nillable().
			Comment("First transition to processing"),
		field.Time("completed_at").
			Optional().
			Nillable().
			Comment("Set on any terminal transition"),
		field.Time("reviewed_at").
			Optional().
			Nillable(),
		field.String("reviewed_by").
			Optional().
			Nillable(),
	}
}

// Edges of the AIReport.
func (AIReport) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("patient", Patient.Type).
			Ref("ai_reports").
			Field("patient_id").
			Unique().
			Required(),
	}
}

// Indexes of the AIReport.
func (AIReport) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("patient_id"),
		index.Fields("status", "generated_at"),
	}
}
