package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/paperprofit/internal/database"
	"github.com/aristath/paperprofit/internal/modules/syslog"
)

// Maintenance runs daily housekeeping: WAL checkpointing and system log
// pruning. Separate from the worker controller because these are calendar
// jobs, not interval loops.
type Maintenance struct {
	cron      *cron.Cron
	db        *database.DB
	syslog    *syslog.Repository
	retention time.Duration
	log       zerolog.Logger
}

// NewMaintenance creates the maintenance scheduler.
func NewMaintenance(db *database.DB, syslogRepo *syslog.Repository, retention time.Duration, log zerolog.Logger) *Maintenance {
	return &Maintenance{
		cron:      cron.New(),
		db:        db,
		syslog:    syslogRepo,
		retention: retention,
		log:       log.With().Str("component", "maintenance").Logger(),
	}
}

// Start registers the daily job and starts the cron loop.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc("@daily", m.runDaily); err != nil {
		return err
	}
	m.cron.Start()
	m.log.Info().Msg("Maintenance scheduler started")
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info().Msg("Maintenance scheduler stopped")
}

func (m *Maintenance) runDaily() {
	if err := m.db.WALCheckpoint(""); err != nil {
		m.log.Error().Err(err).Msg("WAL checkpoint failed")
	} else {
		m.log.Info().Msg("WAL checkpoint completed")
	}

	pruned, err := m.syslog.Prune(m.retention)
	if err != nil {
		m.log.Error().Err(err).Msg("System log pruning failed")
		return
	}
	if pruned > 0 {
		m.log.Info().Int64("rows", pruned).Msg("Pruned old system logs")
	}
}
