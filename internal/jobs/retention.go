package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"NuamCalifSaas/api/auditoria"
	"NuamCalifSaas/api/calificaciones"
	"NuamCalifSaas/api/constants"
	"NuamCalifSaas/internal/config"
	"NuamCalifSaas/internal/logger"
	"NuamCalifSaas/internal/serviceiface"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// RetentionConfig holds configuration for the batch-retention job.
type RetentionConfig struct {
	Schedule      string
	RetentionDays int
	TimeZone      string
}

// NewDefaultRetentionConfig creates a RetentionConfig with default values
func NewDefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		Schedule:      config.DefaultRetentionSchedule,
		RetentionDays: config.DefaultBatchRetentionDays,
		TimeZone:      config.DefaultTimeZone,
	}
}

type RetentionService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
	db     *sql.DB
	cron   *cron.Cron
}

func NewRetentionService(cfg map[string]interface{}, pool *pgxpool.Pool, db *sql.DB) serviceiface.Service {
	return &RetentionService{
		config: cfg,
		pool:   pool,
		db:     db,
	}
}

func (s *RetentionService) Name() string {
	return "retention"
}

func (s *RetentionService) Start() error {
	retCfg := NewDefaultRetentionConfig()

	if s.config != nil {
		if schedule, ok := s.config["schedule"].(string); ok && schedule != "" {
			retCfg.Schedule = schedule
		}
		if days, ok := s.config["retention_days"].(int); ok && days > 0 {
			retCfg.RetentionDays = days
		}
		if tz, ok := s.config["time_zone"].(string); ok && tz != "" {
			retCfg.TimeZone = tz
		}
	}

	if err := s.runScheduler(retCfg); err != nil {
		return fmt.Errorf("failed to start retention scheduler: %v", err)
	}

	log.Println("Retention service started, batch purge scheduled")
	return nil
}

func (s *RetentionService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	log.Println("Retention service stopped.")
	return nil
}

func (s *RetentionService) runScheduler(cfg *RetentionConfig) error {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))

	repo := calificaciones.NewPostgresRepository(s.pool)
	audit := auditoria.NewStore(s.db)

	_, err = c.AddFunc(cfg.Schedule, func() {
		if err := PurgeExpiredBatches(repo, audit, cfg.RetentionDays); err != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Batch retention purge failed: %v", err))
		}
	})
	if err != nil {
		return fmt.Errorf("unable to schedule retention purge: %v", err)
	}

	c.Start()
	s.cron = c
	logger.GlobalLogger.LogAudit("Batch retention scheduler started")

	return nil
}

// PurgeExpiredBatches deletes ingestion batches finished earlier than the
// retention window and records the purge in the audit trail.
func PurgeExpiredBatches(repo calificaciones.Repository, audit *auditoria.Store, retentionDays int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	purged, err := repo.PurgeBatchesBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge batches before %s: %w", cutoff.Format(constants.DateFormat), err)
	}

	if purged > 0 {
		detail := fmt.Sprintf("purged %d ingestion batches older than %s", purged, cutoff.Format(constants.DateFormat))
		audit.Record(ctx, constants.SystemActor, auditoria.AccionDelete, "cargas_masivas", 0, "", detail)
		logger.GlobalLogger.LogAudit("[Retention] " + detail)
	}

	return nil
}
