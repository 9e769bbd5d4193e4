// Package store persists the learner's event journal in SQLite. The
// journal is the replay source: the in-memory engine is rebuilt from
// it on every CLI invocation, which keeps the core deterministic and
// the binary stateless.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/while-basic/Ollama-AI-Simulator/internal/engine"
	"github.com/while-basic/Ollama-AI-Simulator/internal/model"
)

// Op kinds recorded in the journal.
const (
	OpInteraction = "interaction"
	OpTick        = "tick"
	OpDream       = "dream"
)

// Op is one journaled engine operation.
type Op struct {
	ID       string             `json:"id"`
	Kind     string             `json:"kind"`
	Tick     int64              `json:"tick"`
	Stimulus string             `json:"stimulus,omitempty"`
	Response string             `json:"response,omitempty"`
	Reward   float64            `json:"reward,omitempty"`
	Tag      model.EmotionalTag `json:"emotional_tag,omitempty"`
	Ticks    int64              `json:"ticks,omitempty"` // tick ops: number of ticks advanced
}

// Journal is the SQLite-backed event log.
type Journal struct {
	db      *sql.DB
	entropy *rand.Rand
}

// Open opens or creates the journal database at the given path.
func Open(dbPath string) (*Journal, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	j := &Journal{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return j, nil
}

func (j *Journal) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), j.entropy).String()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS journal (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		tick       INTEGER NOT NULL,
		stimulus   TEXT,
		response   TEXT,
		reward     REAL,
		emotion    TEXT,
		n_ticks    INTEGER,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_journal_kind ON journal(kind);

	CREATE TABLE IF NOT EXISTS milestone_events (
		id           TEXT PRIMARY KEY,
		milestone_id TEXT NOT NULL,
		tick         INTEGER NOT NULL,
		matched_text TEXT NOT NULL,
		reward       REAL NOT NULL,
		created_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stage_transitions (
		id         TEXT PRIMARY KEY,
		from_stage TEXT NOT NULL,
		to_stage   TEXT NOT NULL,
		tick       INTEGER NOT NULL,
		evidence   REAL NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := j.db.Exec(schema)
	return err
}

// AppendInteraction journals one observed interaction.
func (j *Journal) AppendInteraction(ctx context.Context, in engine.Interaction) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO journal (id, kind, tick, stimulus, response, reward, emotion, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.newID(), OpInteraction, in.Tick, in.Stimulus, in.Response, in.Reward,
		in.Tag.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// AppendTick journals a clock advance of n ticks ending at tick.
func (j *Journal) AppendTick(ctx context.Context, tick, n int64) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO journal (id, kind, tick, n_ticks, created_at) VALUES (?, ?, ?, ?, ?)`,
		j.newID(), OpTick, tick, n, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append tick: %w", err)
	}
	return nil
}

// AppendDream journals a completed consolidation cycle.
func (j *Journal) AppendDream(ctx context.Context, tick int64) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO journal (id, kind, tick, created_at) VALUES (?, ?, ?, ?)`,
		j.newID(), OpDream, tick, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("append dream: %w", err)
	}
	return nil
}

// Ops returns the full journal in append order.
func (j *Journal) Ops(ctx context.Context) ([]Op, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, tick, stimulus, response, reward, emotion, n_ticks
		 FROM journal ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []Op
	for rows.Next() {
		var op Op
		var stimulus, response, emotion sql.NullString
		var reward sql.NullFloat64
		var nTicks sql.NullInt64
		if err := rows.Scan(&op.ID, &op.Kind, &op.Tick, &stimulus, &response, &reward, &emotion, &nTicks); err != nil {
			return nil, err
		}
		op.Stimulus = stimulus.String
		op.Response = response.String
		op.Reward = reward.Float64
		if emotion.Valid {
			tag, err := model.ParseEmotionalTag(emotion.String)
			if err != nil {
				return nil, fmt.Errorf("journal row %s: %w", op.ID, err)
			}
			op.Tag = tag
		}
		op.Ticks = nTicks.Int64
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Replay rebuilds engine state by applying the journal in order.
func (j *Journal) Replay(ctx context.Context, e *engine.Engine) error {
	ops, err := j.Ops(ctx)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	for _, op := range ops {
		switch op.Kind {
		case OpInteraction:
			_, err = e.Observe(engine.Interaction{
				Stimulus: op.Stimulus,
				Response: op.Response,
				Reward:   op.Reward,
				Tag:      op.Tag,
				Tick:     op.Tick,
			})
		case OpTick:
			_, _, err = e.AdvanceClock(op.Ticks)
		case OpDream:
			_, err = e.Dream(ctx)
		default:
			err = fmt.Errorf("unknown op kind %q", op.Kind)
		}
		if err != nil {
			return fmt.Errorf("replay op %s: %w", op.ID, err)
		}
	}
	return nil
}

// RecordMilestone persists a fired milestone for browsing.
func (j *Journal) RecordMilestone(ctx context.Context, ev model.MilestoneEvent) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO milestone_events (id, milestone_id, tick, matched_text, reward, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		j.newID(), ev.MilestoneID, ev.Tick, ev.MatchedText, ev.Reward,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record milestone: %w", err)
	}
	return nil
}

// RecordTransition persists a stage transition for browsing.
func (j *Journal) RecordTransition(ctx context.Context, ev model.StageTransitionEvent) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO stage_transitions (id, from_stage, to_stage, tick, evidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		j.newID(), ev.From.String(), ev.To.String(), ev.Tick, ev.Evidence,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// MilestoneEvents returns the persisted milestone history in firing
// order.
func (j *Journal) MilestoneEvents(ctx context.Context) ([]model.MilestoneEvent, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT milestone_id, tick, matched_text, reward FROM milestone_events ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.MilestoneEvent
	for rows.Next() {
		var ev model.MilestoneEvent
		if err := rows.Scan(&ev.MilestoneID, &ev.Tick, &ev.MatchedText, &ev.Reward); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Stats holds journal statistics.
type Stats struct {
	DBPath       string `json:"db_path"`
	DBSizeBytes  int64  `json:"db_size_bytes"`
	Interactions int    `json:"interactions"`
	TickOps      int    `json:"tick_ops"`
	Dreams       int    `json:"dreams"`
	Milestones   int    `json:"milestones"`
	Transitions  int    `json:"transitions"`
}

// Stats returns journal statistics.
func (j *Journal) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}
	j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal WHERE kind = ?`, OpInteraction).Scan(&st.Interactions)
	j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal WHERE kind = ?`, OpTick).Scan(&st.TickOps)
	j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal WHERE kind = ?`, OpDream).Scan(&st.Dreams)
	j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM milestone_events`).Scan(&st.Milestones)
	j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stage_transitions`).Scan(&st.Transitions)
	return st, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
