package repository

import (
	"context"
	"fmt"

	"github.com/mr1hm/go-trial-monitor/internal/models"
)

func (s *SQLiteDB) AddClinic(ctx context.Context, c *models.Clinic) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clinics (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, toNanos(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("error adding clinic %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteDB) ClinicExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM clinics WHERE id = ?)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking clinic %s: %w", id, err)
	}
	return exists, nil
}

func (s *SQLiteDB) ListClinics(ctx context.Context) ([]models.Clinic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM clinics ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing clinics: %w", err)
	}
	defer rows.Close()

	var clinics []models.Clinic
	for rows.Next() {
		var (
			c         models.Clinic
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("error scanning clinic: %w", err)
		}
		c.CreatedAt = fromNanos(createdAt)
		clinics = append(clinics, c)
	}
	return clinics, rows.Err()
}
