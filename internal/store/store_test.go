package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"laundry-notifier/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_SavePushSubscription(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "push_subscriptions"`) + `.*ON CONFLICT \("endpoint"\) DO UPDATE SET`).
		WithArgs("https://push.example/1", "u1", "p256", "auth", Any{}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.SavePushSubscription(context.Background(), &model.PushSubscription{
		Endpoint: "https://push.example/1",
		UserID:   "u1",
		P256DH:   "p256",
		Auth:     "auth",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeletePushSubscription(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = $1`)).
		WithArgs("https://push.example/1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assert.NoError(t, store.DeletePushSubscription(context.Background(), "https://push.example/1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_PushSubscriptionsForUsers(t *testing.T) {
	testCases := []struct {
		name             string
		userIDs          []string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedCount    int
		expectedErr      bool
	}{
		{
			name:             "No users, no query",
			userIDs:          nil,
			mockExpectations: func(mock sqlmock.Sqlmock) {},
			expectedCount:    0,
		},
		{
			name:    "Subscriptions for two users",
			userIDs: []string{"u1", "u2"},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "push_subscriptions" WHERE user_id IN ($1,$2)`)).
					WithArgs("u1", "u2").
					WillReturnRows(sqlmock.NewRows([]string{"endpoint", "user_id", "p256dh", "auth", "created_at"}).
						AddRow("https://push.example/1", "u1", "k1", "a1", time.Now()).
						AddRow("https://push.example/2", "u2", "k2", "a2", time.Now()))
			},
			expectedCount: 2,
		},
		{
			name:    "Query error is wrapped",
			userIDs: []string{"u1"},
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "push_subscriptions"`)).
					WithArgs("u1").
					WillReturnError(errors.New("connection reset"))
			},
			expectedErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			store := NewGormStore(gormDB)
			tc.mockExpectations(mock)

			subs, err := store.PushSubscriptionsForUsers(context.Background(), tc.userIDs)
			if tc.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Len(t, subs, tc.expectedCount)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_RecordFinish(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "finish_records"`)).
		WithArgs("A1", "Washer A1", "IN_USE", "FINISHED", "Normal", 2, Any{}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	record := &model.FinishRecord{
		MachineID:      "A1",
		MachineName:    "Washer A1",
		PreviousStatus: "IN_USE",
		Status:         "FINISHED",
		Cycle:          "Normal",
		Notified:       2,
		ObservedAt:     now,
	}
	require.NoError(t, store.RecordFinish(context.Background(), record))
	assert.Equal(t, int64(7), record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_FinishHistory(t *testing.T) {
	gormDB, mock := newTestDB(t)
	store := NewGormStore(gormDB)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "finish_records" WHERE machine_id = $1 ORDER BY observed_at DESC LIMIT $2`)).
		WithArgs("A1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "machine_id", "machine_name", "status", "observed_at"}).
			AddRow(2, "A1", "Washer A1", "FINISHED", now).
			AddRow(1, "A1", "Washer A1", "AVAILABLE", now.Add(-time.Hour)))

	records, err := store.FinishHistory(context.Background(), "A1", 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
