package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Report holds the schema definition for an uploaded medical report file.
type Report struct {
	ent.Schema
}

// Fields of the Report.
func (Report) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("patient_id"),
		field.String("file_name"),
		field.String("file_path"),
		field.String("category").
			Default("general").
			Comment("Report classification: imaging, pathology, lab, general"),
		field.Int64("file_size").
			Default(0),
		field.Time("uploaded_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the Report.
func (Report) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("patient", Patient.Type).
			Ref("reports").
			Field("patient_id").
			Unique().
			Required(),
	}
}

// Indexes of the Report.
func (Report) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("patient_id"),
		index.Fields("category"),
	}
}
