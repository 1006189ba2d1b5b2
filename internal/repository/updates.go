package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr1hm/go-trial-monitor/internal/models"
)

func (s *SQLiteDB) AddUpdate(ctx context.Context, u *models.UpdateRecord) error {
	sideEffects := u.SideEffects
	if sideEffects == nil {
		sideEffects = []string{}
	}
	raw, err := json.Marshal(sideEffects)
	if err != nil {
		return fmt.Errorf("error encoding side effects: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO updates (id, clinic_id, ts, patient_count, avg_fever, side_effects, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.ClinicID, toNanos(u.Timestamp), u.PatientCount, u.AvgFever, string(raw), u.Notes,
	)
	if err != nil {
		return fmt.Errorf("error adding update %s: %w", u.ID, err)
	}
	return nil
}

func (s *SQLiteDB) ListUpdates(ctx context.Context, opts Filter) ([]models.UpdateRecord, error) {
	query := `SELECT id, clinic_id, ts, patient_count, avg_fever, side_effects, notes FROM updates`

	var (
		where []string
		args  []any
	)
	if opts.ClinicID != "" {
		where = append(where, "clinic_id = ?")
		args = append(args, opts.ClinicID)
	}
	if opts.Since != nil {
		where = append(where, "ts >= ?")
		args = append(args, toNanos(*opts.Since))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing updates: %w", err)
	}
	defer rows.Close()

	var updates []models.UpdateRecord
	for rows.Next() {
		var (
			u   models.UpdateRecord
			ts  int64
			raw string
		)
		if err := rows.Scan(&u.ID, &u.ClinicID, &ts, &u.PatientCount, &u.AvgFever, &raw, &u.Notes); err != nil {
			return nil, fmt.Errorf("error scanning update: %w", err)
		}
		u.Timestamp = fromNanos(ts)
		if err := json.Unmarshal([]byte(raw), &u.SideEffects); err != nil {
			return nil, fmt.Errorf("error decoding side effects of %s: %w", u.ID, err)
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}
