package jobs

import (
	"context"
	"time"

	"github.com/quantview/riskdesk/internal/reliability"
)

// backupTimeout bounds a single backup run including the upload.
const backupTimeout = 10 * time.Minute

// BackupJob runs the database backup on its cron schedule.
type BackupJob struct {
	service *reliability.BackupService
}

// NewBackupJob creates a backup job
func NewBackupJob(service *reliability.BackupService) *BackupJob {
	return &BackupJob{service: service}
}

// Name implements scheduler.Job
func (j *BackupJob) Name() string {
	return "database_backup"
}

// Run implements scheduler.Job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	return j.service.CreateAndUploadBackup(ctx)
}
