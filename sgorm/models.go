// Package sgorm provides GORM-backed persistence for Seal: relation tuples,
// rule versions, and audit events. It supports sqlite, postgres, and mysql
// through the registry in the persistence package.
package sgorm

import (
	"time"

	"github.com/getseal/seal/core/relationtuple"
)

// gormRelationTuple stores relationship tuples in the database.
// The table is optimized for the check engine's query patterns with
// composite indexes on the object slot and the subject (reverse) slot.
type gormRelationTuple struct {
	ID              string    `gorm:"primaryKey"`
	Namespace       string    `gorm:"size:64;index:idx_object,priority:1;index:idx_full,priority:1"`
	ObjectID        string    `gorm:"size:255;index:idx_object,priority:2;index:idx_full,priority:2"`
	Relation        string    `gorm:"size:64;index:idx_object,priority:3;index:idx_full,priority:3"`
	SubjectNS       string    `gorm:"size:64;index:idx_subject,priority:1;index:idx_full,priority:4"`
	SubjectID       string    `gorm:"size:255;index:idx_subject,priority:2;index:idx_full,priority:5"`
	SubjectRelation string    `gorm:"size:64;index:idx_subject,priority:3;index:idx_full,priority:6"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (gormRelationTuple) TableName() string {
	return "relation_tuples"
}

// gormRuleVersion stores one compiled rule version: the original source plus
// the single active pointer. History is retained for rollback and audit.
type gormRuleVersion struct {
	ID        string    `gorm:"primaryKey"`
	Source    string    `gorm:"type:text"`
	Active    bool      `gorm:"index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (gormRuleVersion) TableName() string {
	return "rule_versions"
}

// gormAuditEvent stores decision and administration audit events.
type gormAuditEvent struct {
	ID        string    `gorm:"primaryKey"`
	Type      string    `gorm:"size:64;index"`
	Subject   string    `gorm:"size:320;index"`
	Action    string    `gorm:"size:64"`
	Resource  string    `gorm:"size:320"`
	Status    string    `gorm:"size:16;index"`
	Message   string    `gorm:"type:text"`
	RequestID string    `gorm:"size:64"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName returns the table name for GORM.
func (gormAuditEvent) TableName() string {
	return "audit_events"
}

// toCoreTuple converts a GORM model to the core domain type.
func toCoreTuple(gt *gormRelationTuple) relationtuple.Tuple {
	return relationtuple.Tuple{
		Subject: relationtuple.SubjectRef{
			Object: relationtuple.ObjectRef{
				Namespace: gt.SubjectNS,
				ID:        gt.SubjectID,
			},
			Relation: gt.SubjectRelation,
		},
		Relation: gt.Relation,
		Object: relationtuple.ObjectRef{
			Namespace: gt.Namespace,
			ID:        gt.ObjectID,
		},
	}
}

// fromCoreTuple converts a core domain type to a GORM model.
func fromCoreTuple(t relationtuple.Tuple, id string) *gormRelationTuple {
	return &gormRelationTuple{
		ID:              id,
		Namespace:       t.Object.Namespace,
		ObjectID:        t.Object.ID,
		Relation:        t.Relation,
		SubjectNS:       t.Subject.Object.Namespace,
		SubjectID:       t.Subject.Object.ID,
		SubjectRelation: t.Subject.Relation,
	}
}

// tupleID creates a content-derived identifier for a tuple, which makes the
// primary key the idempotence key: the same fact cannot be inserted twice.
func tupleID(t relationtuple.Tuple) string {
	return t.String()
}
