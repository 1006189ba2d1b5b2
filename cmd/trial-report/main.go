// Command trial-report prints a one-off analytics report from the trial
// monitor database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-trial-monitor/internal/analytics"
	"github.com/mr1hm/go-trial-monitor/internal/config"
	"github.com/mr1hm/go-trial-monitor/internal/logging"
	"github.com/mr1hm/go-trial-monitor/internal/models"
	"github.com/mr1hm/go-trial-monitor/internal/monitor"
	"github.com/mr1hm/go-trial-monitor/internal/repository"
)

type report struct {
	Analytics  models.AnalyticsSnapshot `json:"analytics"`
	FeverChart []models.FeverChartRow   `json:"feverChart"`
	Clinics    []models.ClinicStatus    `json:"clinics"`
	Raised     []models.Alert           `json:"raised,omitempty"`
}

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", "", "database path (defaults to DB_PATH)")
	policyPath := flag.String("policy", "", "risk policy YAML file (defaults to POLICY_FILE)")
	evaluate := flag.Bool("evaluate", false, "raise and store alerts before reporting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	// Logs go to stderr so stdout stays valid JSON.
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	if *dbPath == "" {
		*dbPath = cfg.DB.Path
	}
	if *policyPath == "" {
		*policyPath = cfg.Evaluator.PolicyFile
	}

	policy := analytics.DefaultPolicy()
	if *policyPath != "" {
		if policy, err = config.LoadPolicy(*policyPath); err != nil {
			logging.Fatalf("Failed to load risk policy: %v", err)
		}
	}

	db, err := repository.NewSQLiteDB(*dbPath)
	if err != nil {
		logging.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := monitor.NewService(db, policy, monitor.WithLocation(time.Local))

	var out report
	if *evaluate {
		if out.Raised, err = svc.Evaluate(ctx); err != nil {
			logging.Fatalf("Evaluation failed: %v", err)
		}
	}
	if out.Analytics, err = svc.GetAnalytics(ctx); err != nil {
		logging.Fatalf("Failed to build analytics: %v", err)
	}
	if out.FeverChart, err = svc.GetFeverChart(ctx); err != nil {
		logging.Fatalf("Failed to build fever chart: %v", err)
	}
	if out.Clinics, err = svc.GetAllClinics(ctx); err != nil {
		logging.Fatalf("Failed to list clinics: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logging.Fatalf("Failed to write report: %v", err)
	}
}
