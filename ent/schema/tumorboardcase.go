package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TumorBoardCase holds a tumor board case and its AI job state. The cleaned
// board view is serialized as JSON into ai_tumor_board_json; "deleted" is a
// soft-delete status, never a row removal.
type TumorBoardCase struct {
	ent.Schema
}

// Fields of the TumorBoardCase.
func (TumorBoardCase) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("patient_id"),
		field.String("hospital_id"),
		field.Enum("status").
			Values("draft", "queued", "processing", "completed", "failed", "cancelled", "deleted").
			Default("draft"),
		field.Text("ai_summary").
			Optional().
			Nillable().
			Comment("Seeded from the latest AI report at case creation"),
		field.Text("radiology_notes").
			Optional().
			Nillable(),
		field.Text("pathology_notes").
			Optional().
			Nillable(),
		field.Text("oncology_notes").
			Optional().
			Nillable(),
		field.String("guidelines_ref").
			Optional().
			Nillable(),
		field.Text("recommendations").
			Optional().
			Nillable(),
		field.Text("final_decision").
			Optional().
			Nillable(),
		field.Text("ai_tumor_board_json").
			Optional().
			Nillable().
			Comment("Serialized cleaned board view (opaque JSON)"),
		field.Int("progress_percent").
			Default(0),
		field.String("progress_message").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
		field.Time("started_at").
			Optional().
			Nillable(),
		field.Time("completed_at").
			Optional().
			Nillable(),
	}
}

// Edges of the TumorBoardCase.
func (TumorBoardCase) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("patient", Patient.Type).
			Ref("tumor_board_cases").
			Field("patient_id").
			Unique().
			Required(),
	}
}

// Indexes of the TumorBoardCase.
func (TumorBoardCase) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("status"),
		index.Fields("hospital_id"),
		index.Fields("patient_id"),
		index.Fields("status", "created_at"),
	}
}
