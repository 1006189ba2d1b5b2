// Package seed loads the demo clinics, users and update history.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mr1hm/go-trial-monitor/internal/models"
	"github.com/mr1hm/go-trial-monitor/internal/repository"
	"github.com/mr1hm/go-trial-monitor/internal/session"
)

const (
	// DelayedClinic is behind on submissions and reports abnormal symptoms.
	DelayedClinic = "clinic2"

	updatesPerClinic = 10
	onTimeLag        = 12 * time.Hour
	delayedLag       = 30 * time.Hour
)

var sideEffectRotation = [][]string{
	{"nausea"},
	{"headache", "dizziness"},
	{},
}

func Clinics(now time.Time) []models.Clinic {
	clinics := make([]models.Clinic, 0, 5)
	for i := 1; i <= 5; i++ {
		clinics = append(clinics, models.Clinic{
			ID:        fmt.Sprintf("clinic%d", i),
			Name:      fmt.Sprintf("Trial Site %d", i),
			CreatedAt: now.Add(-30 * 24 * time.Hour),
		})
	}
	return clinics
}

func DemoUsers() []session.User {
	return []session.User{
		{ID: "1", ClinicID: "clinic1", Email: "clinic1@demo.com", Role: session.RoleClinic, Password: "password123"},
		{ID: "2", ClinicID: "clinic2", Email: "clinic2@demo.com", Role: session.RoleClinic, Password: "password123"},
		{ID: "3", Email: "manager@demo.com", Role: session.RoleManager, Password: "manager123"},
	}
}

// History builds one daily update per day, oldest first. The newest update of
// every clinic except DelayedClinic is 12h old and within normal ranges.
func History(clinicID string, now time.Time, count int, rng *rand.Rand) []models.UpdateRecord {
	lag := onTimeLag
	if clinicID == DelayedClinic {
		lag = delayedLag
	}

	updates := make([]models.UpdateRecord, 0, count)
	for i := count - 1; i >= 0; i-- {
		u := models.UpdateRecord{
			ID:           fmt.Sprintf("update_%s_%d", clinicID, i),
			ClinicID:     clinicID,
			Timestamp:    now.Add(-lag - time.Duration(i)*24*time.Hour),
			PatientCount: 15 + rng.IntN(15),
			AvgFever:     37.0 + rng.Float64()*1.5,
			SideEffects:  sideEffectRotation[i%len(sideEffectRotation)],
			Notes:        fmt.Sprintf("Daily update %d", i+1),
		}
		if i == 0 {
			u.AvgFever = 37.0 + rng.Float64()*0.9
			if clinicID == DelayedClinic {
				u.AvgFever = 38.5
				u.SideEffects = []string{"headache", "dizziness"}
			}
		}
		updates = append(updates, u)
	}
	return updates
}

// Run stores the demo data. Clinics that already exist are left untouched,
// so Run is safe to call on every start.
func Run(ctx context.Context, repo repository.Repository, now time.Time, rng *rand.Rand) error {
	for _, c := range Clinics(now) {
		exists, err := repo.ClinicExists(ctx, c.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		if err := repo.AddClinic(ctx, &c); err != nil {
			return err
		}
		for _, u := range History(c.ID, now, updatesPerClinic, rng) {
			if err := repo.AddUpdate(ctx, &u); err != nil {
				return err
			}
		}
		slog.Info("seeded clinic", "clinic_id", c.ID, "updates", updatesPerClinic)
	}
	return nil
}
