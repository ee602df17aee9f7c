package sink

import (
	"database/sql"

	"github.com/david0154/David-BCI/internal/domain"
	"github.com/david0154/David-BCI/internal/ports"
)

// TimescaleSink persists decisions so the offline side can correlate online
// control output with recorded sessions. Inserts are idempotent on
// (session_id, window_seq), which also makes replayed sessions safe.
type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) OnDecision(d *domain.Decision) error {
	query := "INSERT INTO " + t.tableName +
		" (session_id, window_seq, ts, label, confidence, value) VALUES ($1,$2,$3,$4,$5,$6)" +
		" ON CONFLICT (session_id, window_seq) DO NOTHING"

	_, err := t.db.Exec(query,
		d.SessionID,
		d.WindowSeq,
		d.At,
		d.Label,
		d.Confidence,
		d.Value,
	)
	return err
}

var _ ports.DecisionSink = (*TimescaleSink)(nil)
