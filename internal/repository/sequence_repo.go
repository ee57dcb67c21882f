package repository

import (
	"context"
	"fmt"

	"nakl/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository hands out gap-tolerant, never-reused business numbers.
// Each series has one counter row that is only ever incremented.
type SequenceRepository interface {
	// Next allocates the next number. With a nil tx it commits in its own
	// short transaction, so the counter row lock is not held across the
	// caller's write; a number whose write later fails is simply skipped.
	Next(ctx context.Context, tx *gorm.DB, series model.Series) (string, error)
	Current(ctx context.Context, series model.Series) (int64, error)
	// Seed creates missing counter rows; existing rows are left untouched.
	Seed(ctx context.Context) error
}

type sequenceRepo struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) SequenceRepository { return &sequenceRepo{db: db} }

func (r *sequenceRepo) Next(ctx context.Context, tx *gorm.DB, series model.Series) (string, error) {
	if !series.Valid() {
		return "", fmt.Errorf("sequence: unknown series %q", series)
	}
	if tx != nil {
		return r.next(ctx, tx, series)
	}
	var number string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = r.next(ctx, tx, series)
		return err
	})
	return number, err
}

func (r *sequenceRepo) next(ctx context.Context, tx *gorm.DB, series model.Series) (string, error) {
	db := tx.WithContext(ctx)

	// The UPDATE takes the row lock; concurrent allocators on the same
	// series queue behind it until this transaction ends.
	res := db.Model(&model.SequenceCounter{}).
		Where("series = ?", series).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return "", fmt.Errorf("sequence %s: %w", series, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.SequenceCounter{Series: series}).Error; err != nil {
			return "", fmt.Errorf("sequence %s: seed: %w", series, err)
		}
		res = db.Model(&model.SequenceCounter{}).
			Where("series = ?", series).
			UpdateColumn("value", gorm.Expr("value + 1"))
		if res.Error != nil {
			return "", fmt.Errorf("sequence %s: %w", series, res.Error)
		}
	}

	var value int64
	if err := db.Model(&model.SequenceCounter{}).
		Select("value").
		Where("series = ?", series).
		Scan(&value).Error; err != nil {
		return "", fmt.Errorf("sequence %s: read: %w", series, err)
	}
	return series.Format(value), nil
}

func (r *sequenceRepo) Current(ctx context.Context, series model.Series) (int64, error) {
	var c model.SequenceCounter
	err := r.db.WithContext(ctx).Where("series = ?", series).First(&c).Error
	if IsNotFound(err) {
		return 0, nil
	}
	return c.Value, err
}

func (r *sequenceRepo) Seed(ctx context.Context) error {
	rows := make([]model.SequenceCounter, 0, len(model.AllSeries))
	for _, s := range model.AllSeries {
		rows = append(rows, model.SequenceCounter{Series: s})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
