package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
)

const subjectColumns = "id, code, name, sks, semester, program_studi, kelas, departemen, tipe_mata_kuliah"

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SubjectRepository queries the subject catalog.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// Search returns one page of subjects matching filter, ordered by code.
func (r *SubjectRepository) Search(ctx context.Context, filter models.FilterCriteria, page, limit int) (*models.SearchPage, error) {
	base := "FROM subjects WHERE 1=1"
	var conditions []string
	var args []interface{}

	if term := filter.Get(models.FilterCode); term != "" {
		conditions = append(conditions, fmt.Sprintf(`(LOWER(code) LIKE $%d ESCAPE '\' OR LOWER(name) LIKE $%d ESCAPE '\')`, len(args)+1, len(args)+1))
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(term))+"%")
	}
	if semester := filter.Get(models.FilterSemester); semester != "" {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, strings.ToUpper(semester))
	}
	exact := []struct {
		key    models.FilterKey
		column string
	}{
		{models.FilterProgram, "program_studi"},
		{models.FilterClassTrack, "kelas"},
		{models.FilterDepartment, "departemen"},
		{models.FilterCourseType, "tipe_mata_kuliah"},
	}
	for _, f := range exact {
		if value := filter.Get(f.key); value != "" {
			conditions = append(conditions, fmt.Sprintf("LOWER(%s) = LOWER($%d)", f.column, len(args)+1))
			args = append(args, value)
		}
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s %s ORDER BY code ASC, id ASC LIMIT %d OFFSET %d", subjectColumns, base, limit, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("search subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, fmt.Errorf("count subjects: %w", err)
	}

	lastPage := (total + limit - 1) / limit
	if lastPage < 1 {
		lastPage = 1
	}
	return &models.SearchPage{Subjects: subjects, CurrentPage: page, LastPage: lastPage, Total: total}, nil
}
