package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Hospital holds the schema definition for the Hospital entity.
type Hospital struct {
	ent.Schema
}

// Fields of the Hospital.
func (Hospital) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("name"),
		field.String("email").
			Unique(),
		field.String("password_hash").
			Sensitive(),
		field.String("registration_number"),
		field.String("address").
			Optional().
			Nillable(),
		field.String("phone").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the Hospital.
func (Hospital) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("patients", Patient.Type),
		edge.To("activity_logs", ActivityLog.Type),
	}
}

// Indexes of the Hospital.
func (Hospital) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("email"),
	}
}
