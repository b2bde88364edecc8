package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"carlog/internal/domain"
	"carlog/internal/ports"
)

// PostgresSink persists trip records into a Postgres/Timescale table with
// columns (ts timestamptz primary key, readings jsonb). Unavailable
// parameters serialize as JSON null. The *sql.DB is owned by the caller.
type PostgresSink struct {
	db        *sql.DB
	tableName string
}

func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	return &PostgresSink{db: db, tableName: table}
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) WriteRows(recs []domain.Record) error {
	if len(recs) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.tableName)
	b.WriteString(" (ts, readings) VALUES ")

	args := make([]any, 0, len(recs)*2)
	for i, rec := range recs {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d)", len(args)+1, len(args)+2))

		readings := make(map[string]any, len(rec.Values))
		for _, v := range rec.Values {
			if !v.Available {
				readings[string(v.Param)] = nil
				continue
			}
			readings[string(v.Param)] = v.Value
		}
		payload, err := json.Marshal(readings)
		if err != nil {
			return fmt.Errorf("marshal readings: %w", err)
		}

		args = append(args, rec.Timestamp, payload)
	}

	b.WriteString(" ON CONFLICT (ts) DO NOTHING")

	_, err := p.db.Exec(b.String(), args...)
	return err
}

// Close is a no-op; the database handle outlives logging sessions.
func (p *PostgresSink) Close() error { return nil }

var _ ports.RecordSink = (*PostgresSink)(nil)
