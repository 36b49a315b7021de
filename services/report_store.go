package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/LovationAdmin/crm-api/models"
)

// PostgresJobStore keeps report jobs in the report_jobs table.
type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

func (s *PostgresJobStore) CreateJob(ctx context.Context, job *models.ReportJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_jobs (id, report_type, format, start_date, end_date, data, download_count, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)`,
		job.ID, job.ReportType, job.Format, job.StartDate, job.EndDate, []byte(job.Data), job.CreatedBy, job.CreatedAt)
	return storeErr("create report job", err)
}

const jobColumns = `id, report_type, format, COALESCE(start_date, ''), COALESCE(end_date, ''),
	data, download_count, COALESCE(created_by::text, ''), created_at`

func scanJob(row interface{ Scan(...any) error }) (models.ReportJob, error) {
	var j models.ReportJob
	var data []byte
	err := row.Scan(&j.ID, &j.ReportType, &j.Format, &j.StartDate, &j.EndDate,
		&data, &j.DownloadCount, &j.CreatedBy, &j.CreatedAt)
	j.Data = data
	return j, err
}

func (s *PostgresJobStore) GetJob(ctx context.Context, id string) (*models.ReportJob, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM report_jobs WHERE id = $1`, id))
	if err != nil {
		return nil, storeErr("report job", err)
	}
	return &j, nil
}

// ListJobs returns the most recent jobs first.
func (s *PostgresJobStore) ListJobs(ctx context.Context, limit int) ([]models.ReportJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM report_jobs ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, storeErr("list report jobs", err)
	}
	defer rows.Close()

	jobs := []models.ReportJob{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, storeErr("list report jobs", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, storeErr("list report jobs", rows.Err())
}

func (s *PostgresJobStore) IncrementDownloads(ctx context.Context, id string) error {
	return execOne(ctx, s.db, "report job",
		`UPDATE report_jobs SET download_count = download_count + 1 WHERE id = $1`, id)
}

func (s *PostgresJobStore) PurgeJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM report_jobs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, storeErr("purge report jobs", err)
	}
	n, err := res.RowsAffected()
	return n, storeErr("purge report jobs", err)
}
