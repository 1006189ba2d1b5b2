package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/models"
)

const alertColumns = `id, clinic_id, type, message, severity, ts, resolved, resolved_at`

func (s *SQLiteDB) AddAlertIfAbsent(ctx context.Context, a *models.Alert) (bool, error) {
	// OR IGNORE skips the insert when idx_alerts_open already holds an
	// unresolved alert for this clinic and type.
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO alerts (`+alertColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ClinicID, string(a.Type), a.Message, string(a.Severity),
		toNanos(a.Timestamp), a.Resolved, nullableNanos(a.ResolvedAt),
	)
	if err != nil {
		return false, fmt.Errorf("error adding alert %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteDB) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("alert", id)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting alert %s: %w", id, err)
	}
	return a, nil
}

func (s *SQLiteDB) ListAlerts(ctx context.Context, opts Filter) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`

	var (
		where []string
		args  []any
	)
	if opts.ClinicID != "" {
		where = append(where, "clinic_id = ?")
		args = append(args, opts.ClinicID)
	}
	if opts.Type != nil {
		where = append(where, "type = ?")
		args = append(args, string(*opts.Type))
	}
	if opts.Resolved != nil {
		where = append(where, "resolved = ?")
		args = append(args, *opts.Resolved)
	}
	if opts.Since != nil {
		where = append(where, "ts >= ?")
		args = append(args, toNanos(*opts.Since))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, id"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteDB) ResolveAlert(ctx context.Context, id string, at time.Time) (*models.Alert, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET resolved = 1, resolved_at = ? WHERE id = ? AND resolved = 0`,
		toNanos(at), id,
	)
	if err != nil {
		return nil, fmt.Errorf("error resolving alert %s: %w", id, err)
	}
	// Zero rows changed means the alert is missing or was already resolved;
	// GetAlert tells the two apart.
	return s.GetAlert(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(r rowScanner) (*models.Alert, error) {
	var (
		a              models.Alert
		alertType, sev string
		ts             int64
		resolvedAt     sql.NullInt64
	)
	if err := r.Scan(&a.ID, &a.ClinicID, &alertType, &a.Message, &sev, &ts, &a.Resolved, &resolvedAt); err != nil {
		return nil, err
	}
	a.Type = models.AlertType(alertType)
	a.Severity = models.AlertSeverity(sev)
	a.Timestamp = fromNanos(ts)
	if resolvedAt.Valid {
		t := fromNanos(resolvedAt.Int64)
		a.ResolvedAt = &t
	}
	return &a, nil
}

func nullableNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toNanos(*t), Valid: true}
}
