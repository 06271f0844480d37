package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
)

// RegistrationRepository reads registrations and their saved equivalences.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository creates a new repository instance.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

type equivalenceRow struct {
	ID             string          `db:"id"`
	RegistrationID string          `db:"registration_id"`
	SubjectID      string          `db:"subject_id"`
	CreatedAt      time.Time       `db:"created_at"`
	Code           string          `db:"code"`
	Name           string          `db:"name"`
	Credits        int             `db:"sks"`
	Semester       models.Semester `db:"semester"`
	Program        string          `db:"program_studi"`
	ClassTrack     string          `db:"kelas"`
	Department     string          `db:"departemen"`
	CourseType     string          `db:"tipe_mata_kuliah"`
}

// FindByID returns the registration with its equivalents. sql.ErrNoRows is returned unwrapped
// when the registration does not exist.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	const query = `SELECT id, user_id, user_name, activity_id, activity_name, total_sks, approval_status, updated_at
FROM registrations WHERE id = $1`
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		return nil, err
	}

	const equivalentsQuery = `SELECT e.id, e.registration_id, e.subject_id, e.created_at,
s.code, s.name, s.sks, s.semester, s.program_studi, s.kelas, s.departemen, s.tipe_mata_kuliah
FROM equivalents e JOIN subjects s ON s.id = e.subject_id
WHERE e.registration_id = $1 ORDER BY s.code ASC`
	var rows []equivalenceRow
	if err := r.db.SelectContext(ctx, &rows, equivalentsQuery, id); err != nil {
		return nil, fmt.Errorf("list equivalents: %w", err)
	}

	reg.Equivalents = make([]models.Equivalence, 0, len(rows))
	for _, row := range rows {
		reg.Equivalents = append(reg.Equivalents, models.Equivalence{
			ID:             row.ID,
			RegistrationID: row.RegistrationID,
			SubjectID:      row.SubjectID,
			CreatedAt:      row.CreatedAt,
			Subject: &models.Subject{
				ID:         row.SubjectID,
				Code:       row.Code,
				Name:       row.Name,
				Credits:    row.Credits,
				Semester:   row.Semester,
				Program:    row.Program,
				ClassTrack: row.ClassTrack,
				Department: row.Department,
				CourseType: row.CourseType,
			},
		})
	}
	return &reg, nil
}
