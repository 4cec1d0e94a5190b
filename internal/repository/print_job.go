package repository

import (
	"context"
	"time"

	"github.com/leeveo/inscription-sub004/internal/model"
	"gorm.io/gorm"
)

// PrintJobRepository records one row per rendering request, for traceability
// and retry accounting. Rendering correctness never depends on it.
type PrintJobRepository interface {
	Create(ctx context.Context, job *model.PrintJob) error
	Complete(ctx context.Context, jobID uint, outputBytes int64) error
	Fail(ctx context.Context, jobID uint, reason string) error
	ListByParticipant(ctx context.Context, participantID string) ([]*model.PrintJob, error)
}

type printJobRepoImpl struct {
	db *gorm.DB
}

func NewPrintJobRepository(db *gorm.DB) PrintJobRepository {
	return &printJobRepoImpl{db: db}
}

func (r *printJobRepoImpl) Create(ctx context.Context, job *model.PrintJob) error {
	if job.Status == "" {
		job.Status = model.PrintJobPending
	}
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *printJobRepoImpl) Complete(ctx context.Context, jobID uint, outputBytes int64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.PrintJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":       model.PrintJobCompleted,
			"output_bytes": outputBytes,
			"finished_at":  now,
		}).Error
}

func (r *printJobRepoImpl) Fail(ctx context.Context, jobID uint, reason string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.PrintJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":      model.PrintJobFailed,
			"error":       reason,
			"finished_at": now,
		}).Error
}

func (r *printJobRepoImpl) ListByParticipant(ctx context.Context, participantID string) ([]*model.PrintJob, error) {
	var jobs []*model.PrintJob
	err := r.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("id").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}

	return jobs, nil
}
