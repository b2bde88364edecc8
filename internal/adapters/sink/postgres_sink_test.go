package sink

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"carlog/internal/domain"
)

func TestPostgresSinkWriteRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := NewPostgresSink(db, "trip_records")
	ts := time.Now()

	recs := []domain.Record{
		{
			Timestamp: ts,
			Values: []domain.CachedValue{
				{Param: "rpm", Value: 840, Available: true},
				{Param: "oil", Available: false},
			},
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO trip_records (ts, readings) VALUES ($1,$2) ON CONFLICT (ts) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs(ts, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.WriteRows(recs); err != nil {
		t.Fatalf("write rows: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSinkWriteRowsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := NewPostgresSink(db, "trip_records")
	if err := s.WriteRows(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	s := NewPostgresSink(db, "trip_records")
	if s.Name() != "postgres" {
		t.Fatalf("expected sink name postgres, got %s", s.Name())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
