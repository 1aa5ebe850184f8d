package sgorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/getseal/seal/core/namespace"
)

// VersionRepository implements namespace.VersionStore using GORM. Exactly
// one row is active at a time; activation flips the pointer inside a
// transaction so a crash never leaves zero or two active versions.
type VersionRepository struct {
	db *gorm.DB
}

// NewVersionRepository creates a new rule version repository.
func NewVersionRepository(db *gorm.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// AutoMigrate creates the rule version table.
func (r *VersionRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&gormRuleVersion{})
}

// SaveVersion persists a new rule version, optionally activating it.
func (r *VersionRepository) SaveVersion(ctx context.Context, version, source string, activate bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if activate {
			if err := tx.Model(&gormRuleVersion{}).Where("active = ?", true).
				Update("active", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&gormRuleVersion{
			ID:     version,
			Source: source,
			Active: activate,
		}).Error
	})
}

// ActivateVersion makes a stored version the active one and returns its
// source.
func (r *VersionRepository) ActivateVersion(ctx context.Context, version string) (string, error) {
	var row gormRuleVersion
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "id = ?", version).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("sgorm: rule version %q not found", version)
			}
			return err
		}
		if err := tx.Model(&gormRuleVersion{}).Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(&gormRuleVersion{}).Where("id = ?", version).
			Update("active", true).Error
	})
	if err != nil {
		return "", err
	}
	return row.Source, nil
}

// ActiveVersion returns the active version, or ok=false when none exists.
func (r *VersionRepository) ActiveVersion(ctx context.Context) (string, string, bool, error) {
	var row gormRuleVersion
	err := r.db.WithContext(ctx).First(&row, "active = ?", true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return row.ID, row.Source, true, nil
}

// ListVersions returns all stored versions, newest first.
func (r *VersionRepository) ListVersions(ctx context.Context) ([]namespace.VersionInfo, error) {
	var rows []gormRuleVersion
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]namespace.VersionInfo, len(rows))
	for i, row := range rows {
		result[i] = namespace.VersionInfo{
			Version:   row.ID,
			Active:    row.Active,
			CreatedAt: row.CreatedAt,
		}
	}
	return result, nil
}

// Compile-time interface check
var _ namespace.VersionStore = (*VersionRepository)(nil)
