// internal/subscribers/service_test.go
package subscribers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhamzie/toolplug/internal/common/config"
	"github.com/hhamzie/toolplug/internal/common/errors"
	"github.com/hhamzie/toolplug/internal/common/logger"
	"github.com/hhamzie/toolplug/internal/mailer"
	"github.com/hhamzie/toolplug/internal/models"
)

type fakeMailer struct {
	sent    []mailer.Message
	failure error
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	if f.failure != nil {
		return f.failure
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, *fakeMailer) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fm := &fakeMailer{}
	cfg := &config.Config{}
	cfg.App.Name = "ToolPlug"
	cfg.App.Domain = "toolplug.example.com"

	return New(db, fm, cfg, logger.NewTestLogger(t)), mock, fm
}

func TestSignupNormalizesAndSendsConfirmation(t *testing.T) {
	s, mock, fm := newTestService(t)

	mock.ExpectExec("INSERT INTO subscribers_pending").
		WithArgs("user@example.com", 3, "dev,design", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token, err := s.Signup(context.Background(), "  User@Example.COM ", 3,
		[]models.Category{models.CategoryDev, models.CategoryDesign})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, fm.sent, 1)
	msg := fm.sent[0]
	assert.Equal(t, "user@example.com", msg.Recipient)
	assert.Equal(t, "Confirm your ToolPlug subscription", msg.Subject)
	assert.Contains(t, msg.HTMLContent, "https://toolplug.example.com/api/confirm?token="+token)
	assert.Contains(t, msg.TextContent, token)
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		sendDay    int
		categories []models.Category
	}{
		{"bad email", "not-an-email", 1, []models.Category{models.CategoryDev}},
		{"empty email", "", 1, []models.Category{models.CategoryDev}},
		{"day too low", "a@b.co", -1, []models.Category{models.CategoryDev}},
		{"day too high", "a@b.co", 7, []models.Category{models.CategoryDev}},
		{"no categories", "a@b.co", 1, nil},
		{"unknown category", "a@b.co", 1, []models.Category{"gardening"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock, fm := newTestService(t)
			_, err := s.Signup(context.Background(), tt.email, tt.sendDay, tt.categories)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeSignupInvalid))
			assert.Empty(t, fm.sent)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSignupMailerFailureSurfaces(t *testing.T) {
	s, mock, fm := newTestService(t)
	fm.failure = fmt.Errorf("ses unavailable")

	mock.ExpectExec("INSERT INTO subscribers_pending").
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := s.Signup(context.Background(), "a@b.co", 1, []models.Category{models.CategoryDev})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDeliveryFailed))
}

func TestConfirmPromotesPending(t *testing.T) {
	s, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT id, email, send_day, categories FROM subscribers_pending").
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "send_day", "categories"}).
			AddRow(int64(4), "User@Example.com", 2, "dev,ops"))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subscribers").
		WithArgs("user@example.com", 2, "dev,ops", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("DELETE FROM subscribers_pending").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Confirm(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, "user@example.com", res.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmUnknownToken(t *testing.T) {
	s, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT id, email, send_day, categories FROM subscribers_pending").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "send_day", "categories"}))

	_, err := s.Confirm(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenNotFound))
}

func TestConfirmAlreadySubscribedConsumesPending(t *testing.T) {
	s, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT id, email, send_day, categories FROM subscribers_pending").
		WithArgs("tok-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "send_day", "categories"}).
			AddRow(int64(5), "a@b.co", 1, "dev"))
	mock.ExpectBegin()
	// The conflict target absorbs the duplicate: zero rows inserted.
	mock.ExpectExec("INSERT INTO subscribers").
		WithArgs("a@b.co", 1, "dev", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM subscribers_pending").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Confirm(context.Background(), "tok-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyConfirmed, res.Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnsubscribe(t *testing.T) {
	t.Run("removed", func(t *testing.T) {
		s, mock, _ := newTestService(t)
		mock.ExpectExec("DELETE FROM subscribers WHERE unsub_token").
			WithArgs("u-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		removed, err := s.Unsubscribe(context.Background(), "u-1")
		require.NoError(t, err)
		assert.True(t, removed)
	})

	t.Run("not found", func(t *testing.T) {
		s, mock, _ := newTestService(t)
		mock.ExpectExec("DELETE FROM subscribers WHERE unsub_token").
			WithArgs("u-2").
			WillReturnResult(sqlmock.NewResult(0, 0))

		removed, err := s.Unsubscribe(context.Background(), "u-2")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestStatusNormalizesLookup(t *testing.T) {
	s, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT 1 FROM subscribers").
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	confirmed, err := s.Status(context.Background(), " USER@Example.com ")
	require.NoError(t, err)
	assert.True(t, confirmed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusNotSubscribed(t *testing.T) {
	s, mock, _ := newTestService(t)

	mock.ExpectQuery("SELECT 1 FROM subscribers").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}))

	confirmed, err := s.Status(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.False(t, confirmed)
}

func TestListConfirmedParsesCategories(t *testing.T) {
	s, mock, _ := newTestService(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, email, send_day, categories, unsub_token, created_at FROM subscribers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "send_day", "categories", "unsub_token", "created_at"}).
			AddRow(int64(1), "A@b.co", 3, "dev,wildcard", "u-1", now).
			AddRow(int64(2), "c@d.co", 0, "design", "u-2", now))

	subs, err := s.ListConfirmed(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "a@b.co", subs[0].Email)
	assert.Equal(t, []models.Category{models.CategoryDev, models.CategoryWildcard}, subs[0].Categories)
	assert.Equal(t, []models.Category{models.CategoryDesign}, subs[1].Categories)
}
