package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/actor"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

// EquivalenceRepository applies selection deltas to the equivalents table.
type EquivalenceRepository struct {
	db *sqlx.DB
}

// NewEquivalenceRepository creates a new repository instance.
func NewEquivalenceRepository(db *sqlx.DB) *EquivalenceRepository {
	return &EquivalenceRepository{db: db}
}

// Submit removes and adds equivalents in a single transaction and records an audit entry.
// Either every change is applied or none is.
func (r *EquivalenceRepository) Submit(ctx context.Context, registrationID string, delta models.SelectionDelta) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin equivalence transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT id FROM registrations WHERE id = $1 FOR UPDATE`, registrationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return fmt.Errorf("lock registration: %w", err)
	}

	if len(delta.ToAdd) > 0 {
		var found []string
		if err = tx.SelectContext(ctx, &found, `SELECT id FROM subjects WHERE id = ANY($1)`, pq.Array(delta.ToAdd)); err != nil {
			return fmt.Errorf("check subjects: %w", err)
		}
		if missing := missingIDs(delta.ToAdd, found); len(missing) > 0 {
			return appErrors.Clone(appErrors.ErrValidation, "unknown subjects: "+strings.Join(missing, ", "))
		}
	}

	if len(delta.ToRemove) > 0 {
		const deleteQuery = `DELETE FROM equivalents WHERE registration_id = $1 AND subject_id = ANY($2)`
		if _, err = tx.ExecContext(ctx, deleteQuery, registrationID, pq.Array(delta.ToRemove)); err != nil {
			return fmt.Errorf("delete equivalents: %w", err)
		}
	}

	now := time.Now().UTC()
	const insertQuery = `INSERT INTO equivalents (id, registration_id, subject_id, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (registration_id, subject_id) DO NOTHING`
	for _, subjectID := range delta.ToAdd {
		if _, err = tx.ExecContext(ctx, insertQuery, uuid.NewString(), registrationID, subjectID, now); err != nil {
			return fmt.Errorf("insert equivalent: %w", err)
		}
	}

	if err = insertAudit(ctx, tx, registrationID, delta, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit equivalence transaction: %w", err)
	}
	return nil
}

func insertAudit(ctx context.Context, tx *sqlx.Tx, registrationID string, delta models.SelectionDelta, now time.Time) error {
	removed, err := json.Marshal(map[string][]string{"subject_ids": delta.ToRemove})
	if err != nil {
		return fmt.Errorf("encode audit old values: %w", err)
	}
	added, err := json.Marshal(map[string][]string{"subject_ids": delta.ToAdd})
	if err != nil {
		return fmt.Errorf("encode audit new values: %w", err)
	}

	entry := models.AuditLog{
		ID:         uuid.NewString(),
		Action:     models.AuditActionEquivalenceUpdate,
		Resource:   "registration",
		ResourceID: &registrationID,
		OldValues:  removed,
		NewValues:  added,
		CreatedAt:  now,
	}
	if a, ok := actor.From(ctx); ok {
		if a.UserID != "" {
			userID := a.UserID
			entry.UserID = &userID
		}
		entry.IPAddress = a.IPAddress
		entry.UserAgent = a.UserAgent
	}

	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func missingIDs(want, found []string) []string {
	present := make(map[string]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
