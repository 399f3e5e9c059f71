package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSequence implements shared.Sequence on a row of the id_sequences table.
// The row is created lazily with the configured start value.
type GormSequence struct {
	db    *gorm.DB
	name  string
	start int64
}

// NewGormSequence creates a database-backed sequence
func NewGormSequence(db *gorm.DB, name string, start int64) *GormSequence {
	return &GormSequence{db: db, name: name, start: start}
}

func (s *GormSequence) ensureRow(tx *gorm.DB) error {
	return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&models.SequenceModel{Name: s.name, NextValue: s.start}).Error
}

// Next returns the current value and advances the sequence.
// The UPDATE takes the row lock before the value is read back.
func (s *GormSequence) Next(ctx context.Context) (int64, error) {
	var issued int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureRow(tx); err != nil {
			return err
		}
		if err := tx.Model(&models.SequenceModel{}).
			Where("name = ?", s.name).
			Update("next_value", gorm.Expr("next_value + 1")).Error; err != nil {
			return err
		}
		var row models.SequenceModel
		if err := tx.Where("name = ?", s.name).First(&row).Error; err != nil {
			return err
		}
		issued = row.NextValue - 1
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", s.name, err)
	}
	return issued, nil
}

// Peek returns the value Next would return
func (s *GormSequence) Peek(ctx context.Context) (int64, error) {
	var row models.SequenceModel
	err := s.db.WithContext(ctx).Where("name = ?", s.name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.start, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence %s: %w", s.name, err)
	}
	return row.NextValue, nil
}

// AdvanceTo moves the sequence forward to at least min
func (s *GormSequence) AdvanceTo(ctx context.Context, min int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureRow(tx); err != nil {
			return err
		}
		return tx.Model(&models.SequenceModel{}).
			Where("name = ? AND next_value < ?", s.name, min).
			Update("next_value", min).Error
	})
	if err != nil {
		return fmt.Errorf("failed to advance sequence %s: %w", s.name, err)
	}
	return nil
}

// Ensure GormSequence implements Sequence
var _ shared.Sequence = (*GormSequence)(nil)
