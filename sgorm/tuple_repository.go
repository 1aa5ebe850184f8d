package sgorm

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/getseal/seal/core/relationtuple"
)

// TupleRepository implements relationtuple.Store using GORM.
// It provides persistent storage for relationship tuples.
type TupleRepository struct {
	db *gorm.DB
}

// NewTupleRepository creates a new tuple repository.
func NewTupleRepository(db *gorm.DB) *TupleRepository {
	return &TupleRepository{db: db}
}

// AutoMigrate creates the relation tuple table.
func (r *TupleRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&gormRelationTuple{})
}

// WriteTuple inserts a tuple; re-inserting an existing tuple is a no-op.
func (r *TupleRepository) WriteTuple(ctx context.Context, tuple relationtuple.Tuple) error {
	gt := fromCoreTuple(tuple, tupleID(tuple))

	// Upsert on the content-derived key keeps writes idempotent.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(gt).Error
}

// WriteTuples inserts multiple tuples atomically.
func (r *TupleRepository) WriteTuples(ctx context.Context, tuples []relationtuple.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tuple := range tuples {
			gt := fromCoreTuple(tuple, tupleID(tuple))

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoNothing: true,
			}).Create(gt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteTuple removes a tuple; absence is not an error.
func (r *TupleRepository) DeleteTuple(ctx context.Context, tuple relationtuple.Tuple) error {
	return r.db.WithContext(ctx).Delete(&gormRelationTuple{}, "id = ?", tupleID(tuple)).Error
}

// DeleteTuples removes all tuples matching the filter. An empty filter is
// rejected; wiping the table takes an explicit migration, not a delete call.
func (r *TupleRepository) DeleteTuples(ctx context.Context, filter relationtuple.Filter) error {
	if filter.Empty() {
		return &relationtuple.ValidationError{Reason: "delete filter must set at least one field"}
	}
	query := r.applyFilter(r.db.WithContext(ctx), filter)
	return query.Delete(&gormRelationTuple{}).Error
}

// ReadTuples returns all tuples matching the filter.
func (r *TupleRepository) ReadTuples(ctx context.Context, filter relationtuple.Filter) ([]relationtuple.Tuple, error) {
	query := r.applyFilter(r.db.WithContext(ctx), filter)

	var tuples []gormRelationTuple
	if err := query.Find(&tuples).Error; err != nil {
		return nil, err
	}

	result := make([]relationtuple.Tuple, len(tuples))
	for i, gt := range tuples {
		result[i] = toCoreTuple(&gt)
	}
	return result, nil
}

// TupleExists checks if a specific tuple exists.
func (r *TupleRepository) TupleExists(ctx context.Context, tuple relationtuple.Tuple) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&gormRelationTuple{}).
		Where("id = ?", tupleID(tuple)).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReadSubjectTuples returns every tuple held by the subject, served by the
// subject-side composite index.
func (r *TupleRepository) ReadSubjectTuples(ctx context.Context, subject relationtuple.SubjectRef) ([]relationtuple.Tuple, error) {
	var tuples []gormRelationTuple
	err := r.db.WithContext(ctx).
		Where("subject_ns = ? AND subject_id = ? AND subject_relation = ?",
			subject.Object.Namespace, subject.Object.ID, subject.Relation).
		Find(&tuples).Error
	if err != nil {
		return nil, err
	}

	result := make([]relationtuple.Tuple, len(tuples))
	for i, gt := range tuples {
		result[i] = toCoreTuple(&gt)
	}
	return result, nil
}

// applyFilter adds WHERE clauses based on the filter.
func (r *TupleRepository) applyFilter(query *gorm.DB, filter relationtuple.Filter) *gorm.DB {
	if filter.Namespace != "" {
		query = query.Where("namespace = ?", filter.Namespace)
	}
	if filter.ObjectID != "" {
		query = query.Where("object_id = ?", filter.ObjectID)
	}
	if filter.Relation != "" {
		query = query.Where("relation = ?", filter.Relation)
	}
	if filter.SubjectNS != "" {
		query = query.Where("subject_ns = ?", filter.SubjectNS)
	}
	if filter.SubjectID != "" {
		query = query.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.SubjectRelation != "" {
		query = query.Where("subject_relation = ?", filter.SubjectRelation)
	}
	return query
}

// Compile-time interface check
var _ relationtuple.Store = (*TupleRepository)(nil)
