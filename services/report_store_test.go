package services

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/LovationAdmin/crm-api/models"
)

var jobRowColumns = []string{"id", "report_type", "format", "start_date", "end_date", "data",
	"download_count", "created_by", "created_at"}

func TestJobStoreCreateAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewPostgresJobStore(db)

	job := &models.ReportJob{
		ID:         "cccccccc-0000-0000-0000-000000000001",
		ReportType: models.ReportFinancialSummary,
		Format:     models.FormatCSV,
		StartDate:  "2024-03-01",
		Data:       json.RawMessage(`{"type":"financial-summary"}`),
		CreatedBy:  u1,
		CreatedAt:  time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC),
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_jobs")).
		WithArgs(job.ID, job.ReportType, job.Format, "2024-03-01", "", []byte(job.Data), u1, job.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.CreateJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE id = $1")).WithArgs(job.ID).WillReturnRows(
		sqlmock.NewRows(jobRowColumns).AddRow(job.ID, "financial-summary", "csv", "2024-03-01", "",
			[]byte(job.Data), 3, u1, job.CreatedAt))
	got, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.DownloadCount != 3 || string(got.Data) != string(job.Data) || got.ReportType != job.ReportType {
		t.Errorf("job = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestJobStoreIncrementDownloads(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewPostgresJobStore(db)

	update := regexp.QuoteMeta("UPDATE report_jobs SET download_count = download_count + 1 WHERE id = $1")
	mock.ExpectExec(update).WithArgs("j1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).WithArgs("j2").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.IncrementDownloads(context.Background(), "j1"); err != nil {
		t.Fatal(err)
	}
	if err := store.IncrementDownloads(context.Background(), "j2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing job: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestJobStoreGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM report_jobs").WithArgs("nope").WillReturnRows(sqlmock.NewRows(jobRowColumns))
	if _, err := NewPostgresJobStore(db).GetJob(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestJobStoreDriverFailureIsDataStoreError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM report_jobs").WillReturnError(errors.New("connection reset"))
	_, err = NewPostgresJobStore(db).ListJobs(context.Background(), 10)
	var dsErr *DataStoreError
	if !errors.As(err, &dsErr) {
		t.Fatalf("err = %T %v", err, err)
	}
	if dsErr.Op != "list report jobs" {
		t.Errorf("op = %q", dsErr.Op)
	}
}

func TestJobStorePurge(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM report_jobs WHERE created_at < $1")).
		WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 4))
	n, err := NewPostgresJobStore(db).PurgeJobsBefore(context.Background(), cutoff)
	if err != nil || n != 4 {
		t.Errorf("purged %d, %v", n, err)
	}
}
