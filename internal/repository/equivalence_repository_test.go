package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/actor"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

func expectRegistrationLock(mock sqlmock.Sqlmock, id string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM registrations WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
}

func TestEquivalenceRepositorySubmitAppliesDelta(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEquivalenceRepository(db)

	mock.ExpectBegin()
	expectRegistrationLock(mock, "reg-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subjects WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("S2").AddRow("S3"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM equivalents WHERE registration_id = $1 AND subject_id = ANY($2)")).
		WithArgs("reg-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO equivalents")).
		WithArgs(sqlmock.AnyArg(), "reg-1", "S2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO equivalents")).
		WithArgs(sqlmock.AnyArg(), "reg-1", "S3", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx := actor.With(context.Background(), actor.Actor{UserID: "advisor-1", IPAddress: "10.0.0.8"})
	err := repo.Submit(ctx, "reg-1", models.SelectionDelta{ToAdd: []string{"S2", "S3"}, ToRemove: []string{"S1"}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquivalenceRepositorySubmitRemoveOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEquivalenceRepository(db)

	mock.ExpectBegin()
	expectRegistrationLock(mock, "reg-1")
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM equivalents")).
		WithArgs("reg-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Submit(context.Background(), "reg-1", models.SelectionDelta{ToRemove: []string{"S1", "S2"}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquivalenceRepositorySubmitRejectsUnknownSubjects(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEquivalenceRepository(db)

	mock.ExpectBegin()
	expectRegistrationLock(mock, "reg-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subjects")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("S2"))
	mock.ExpectRollback()

	err := repo.Submit(context.Background(), "reg-1", models.SelectionDelta{ToAdd: []string{"S2", "S9"}})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "S9")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquivalenceRepositorySubmitMissingRegistration(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEquivalenceRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM registrations")).
		WithArgs("reg-x").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Submit(context.Background(), "reg-x", models.SelectionDelta{ToRemove: []string{"S1"}})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquivalenceRepositorySubmitRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEquivalenceRepository(db)

	mock.ExpectBegin()
	expectRegistrationLock(mock, "reg-1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM subjects")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("S2"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO equivalents")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Submit(context.Background(), "reg-1", models.SelectionDelta{ToAdd: []string{"S2"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
