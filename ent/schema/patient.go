package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Patient holds the schema definition for the Patient entity.
type Patient struct {
	ent.Schema
}

// Fields of the Patient.
func (Patient) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("patient_id").
			Comment("External patient identifier (hospital MRN)"),
		field.String("name"),
		field.String("age").
			Optional(),
		field.String("gender").
			Optional(),
		field.String("cancer_type").
			Optional().
			Nillable(),
		field.String("status").
			Default("active"),
		field.String("hospital_id"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Patient.
func (Patient) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("hospital", Hospital.Type).
			Ref("patients").
			Field("hospital_id").
			Unique().
			Required(),
		edge.To("reports", Report.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("ai_reports", AIReport.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("tumor_board_cases", TumorBoardCase.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Patient.
func (Patient) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("patient_id"),
		index.Fields("hospital_id"),
	}
}
