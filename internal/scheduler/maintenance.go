package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/oddsforge/parlay-engine/internal/database"
)

// MaintenanceJob checkpoints the WAL so the log does not grow without
// bound on long-running deployments.
type MaintenanceJob struct {
	db  *database.DB
	log zerolog.Logger
}

func NewMaintenanceJob(db *database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		db:  db,
		log: log.With().Str("job", "db_maintenance").Logger(),
	}
}

func (j *MaintenanceJob) Name() string {
	return "db_maintenance"
}

func (j *MaintenanceJob) Run() error {
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		return err
	}
	j.log.Debug().Str("database", j.db.Name()).Msg("WAL checkpoint complete")
	return nil
}
