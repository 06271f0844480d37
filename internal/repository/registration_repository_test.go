package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, user_name, activity_id, activity_name, total_sks, approval_status, updated_at\nFROM registrations WHERE id = $1")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "user_name", "activity_id", "activity_name", "total_sks", "approval_status", "updated_at"}).
			AddRow("reg-1", "stu-1", "Ayu", "act-1", "Magang Bersertifikat", 20, "APPROVED", now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM equivalents e JOIN subjects s ON s.id = e.subject_id")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "registration_id", "subject_id", "created_at", "code", "name", "sks", "semester", "program_studi", "kelas", "departemen", "tipe_mata_kuliah"}).
			AddRow("eq-1", "reg-1", "S1", now, "IF101", "Algoritma", 3, "GANJIL", "S1 Informatika", "A", "Teknik Informatika", "WAJIB").
			AddRow("eq-2", "reg-1", "S2", now, "IF102", "Basis Data", 4, "GENAP", "S1 Informatika", "A", "Teknik Informatika", "WAJIB"))

	reg, err := repo.FindByID(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "Magang Bersertifikat", reg.ActivityName)
	assert.Equal(t, []string{"S1", "S2"}, reg.EquivalentSubjectIDs())
	require.Len(t, reg.EquivalentSubjects(), 2)
	assert.Equal(t, 4, reg.EquivalentSubjects()[1].Credits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM registrations WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
