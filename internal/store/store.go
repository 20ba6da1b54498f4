package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-notifier/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string) error
	PushSubscriptionsForUsers(ctx context.Context, userIDs []string) ([]model.PushSubscription, error)
	RecordFinish(ctx context.Context, record *model.FinishRecord) error
	FinishHistory(ctx context.Context, machineID string, limit int) ([]model.FinishRecord, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// SavePushSubscription creates the subscription or replaces the owner and
// keys of an existing one with the same endpoint.
func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

// DeletePushSubscription removes the subscription with the given endpoint.
func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete push subscription %s: %w", endpoint, err)
	}
	return nil
}

// PushSubscriptionsForUsers returns every subscription owned by one of userIDs.
func (s *gormStore) PushSubscriptionsForUsers(ctx context.Context, userIDs []string) ([]model.PushSubscription, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch push subscriptions: %w", err)
	}
	return subs, nil
}

// RecordFinish appends a finish to the journal.
func (s *gormStore) RecordFinish(ctx context.Context, record *model.FinishRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to record finish for machine %s: %w", record.MachineID, err)
	}
	return nil
}

// FinishHistory returns the most recent finishes of a machine, newest first.
func (s *gormStore) FinishHistory(ctx context.Context, machineID string, limit int) ([]model.FinishRecord, error) {
	var records []model.FinishRecord
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("observed_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch finish history for machine %s: %w", machineID, err)
	}
	return records, nil
}
