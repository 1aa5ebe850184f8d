package sgorm

import (
	"context"

	"gorm.io/gorm"

	"github.com/getseal/seal/core/audit"
)

// AuditRepository implements audit.Store using GORM.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit event repository.
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// AutoMigrate creates the audit event table.
func (r *AuditRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&gormAuditEvent{})
}

// SaveEvent persists one audit event.
func (r *AuditRepository) SaveEvent(ctx context.Context, event *audit.Event) error {
	return r.db.WithContext(ctx).Create(&gormAuditEvent{
		ID:        event.ID,
		Type:      event.Type,
		Subject:   event.Subject,
		Action:    event.Action,
		Resource:  event.Resource,
		Status:    event.Status,
		Message:   event.Message,
		RequestID: event.RequestID,
		CreatedAt: event.CreatedAt,
	}).Error
}

// ListEvents returns events matching the filter, newest first.
func (r *AuditRepository) ListEvents(ctx context.Context, filter audit.Filter) ([]audit.Event, error) {
	query := r.db.WithContext(ctx).Model(&gormAuditEvent{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Subject != "" {
		query = query.Where("subject = ?", filter.Subject)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []gormAuditEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]audit.Event, len(rows))
	for i, row := range rows {
		result[i] = audit.Event{
			ID:        row.ID,
			Type:      row.Type,
			Subject:   row.Subject,
			Action:    row.Action,
			Resource:  row.Resource,
			Status:    row.Status,
			Message:   row.Message,
			RequestID: row.RequestID,
			CreatedAt: row.CreatedAt,
		}
	}
	return result, nil
}

// Compile-time interface check
var _ audit.Store = (*AuditRepository)(nil)
