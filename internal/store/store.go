// Package store persists campaigns and portfolios in SQL, speaking either
// sqlite or postgres behind database/sql.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"stratsim/internal/campaign"
	"stratsim/internal/portfolio"
)

var ErrNotFound = errors.New("not found")

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type Config struct {
	Dialect    string
	DSN        string // postgres
	SQLitePath string
}

type Store struct {
	dialect Dialect
	db      *sql.DB
}

// Open connects, pings, and applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect := Dialect(cfg.Dialect)
	var driverName, dsn string
	switch dialect {
	case DialectSQLite, "":
		dialect = DialectSQLite
		driverName = "sqlite"
		path := cfg.SQLitePath
		if path == "" {
			path = "stratsim.db"
		}
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		dsn = path
	case DialectPostgres:
		driverName = "pgx"
		dsn = cfg.DSN
		if dsn == "" {
			return nil, errors.New("postgres dialect requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	s := &Store{dialect: dialect, db: db}
	if err := s.applySchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) bind(pos int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		seed BIGINT NOT NULL,
		autopilot INTEGER NOT NULL DEFAULT 0,
		snapshot TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS campaign_turns (
		campaign_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		record TEXT NOT NULL,
		PRIMARY KEY (campaign_id, turn)
	)`,
	`CREATE TABLE IF NOT EXISTS portfolios (
		id TEXT PRIMARY KEY,
		seed BIGINT NOT NULL,
		chess_ai INTEGER NOT NULL DEFAULT 0,
		stance TEXT NOT NULL DEFAULT '',
		alloc TEXT NOT NULL DEFAULT '',
		turn_limit INTEGER NOT NULL,
		turns_played INTEGER NOT NULL DEFAULT 0,
		finished INTEGER NOT NULL DEFAULT 0,
		book TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS portfolio_turns (
		portfolio_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		record TEXT NOT NULL,
		PRIMARY KEY (portfolio_id, turn)
	)`,
}

func (s *Store) applySchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Campaign is a stored campaign row.
type Campaign struct {
	ID        string
	Seed      int64
	Autopilot bool
	Snapshot  campaign.Snapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Store) CreateCampaign(ctx context.Context, c Campaign) error {
	raw, err := json.Marshal(c.Snapshot)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	q := fmt.Sprintf(
		"INSERT INTO campaigns (id, seed, autopilot, snapshot, created_at, updated_at) VALUES (%s, %s, %s, %s, %s, %s)",
		s.bind(1), s.bind(2), s.bind(3), s.bind(4), s.bind(5), s.bind(6),
	)
	_, err = s.db.ExecContext(ctx, q, c.ID, c.Seed, boolToInt(c.Autopilot), string(raw), now, now)
	return err
}

func (s *Store) GetCampaign(ctx context.Context, id string) (Campaign, error) {
	q := fmt.Sprintf(
		"SELECT id, seed, autopilot, snapshot, created_at, updated_at FROM campaigns WHERE id = %s",
		s.bind(1),
	)
	return scanCampaign(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, seed, autopilot, snapshot, created_at, updated_at FROM campaigns ORDER BY created_at",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListAutopilotCampaigns returns campaigns the worker should keep advancing.
func (s *Store) ListAutopilotCampaigns(ctx context.Context) ([]Campaign, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, seed, autopilot, snapshot, created_at, updated_at FROM campaigns WHERE autopilot = 1 ORDER BY created_at",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCampaignSnapshot(ctx context.Context, id string, snap campaign.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(
		"UPDATE campaigns SET snapshot = %s, updated_at = %s WHERE id = %s",
		s.bind(1), s.bind(2), s.bind(3),
	)
	res, err := s.db.ExecContext(ctx, q, string(raw), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) SetCampaignAutopilot(ctx context.Context, id string, enabled bool) error {
	q := fmt.Sprintf(
		"UPDATE campaigns SET autopilot = %s, updated_at = %s WHERE id = %s",
		s.bind(1), s.bind(2), s.bind(3),
	)
	res, err := s.db.ExecContext(ctx, q, boolToInt(enabled), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	q := fmt.Sprintf("DELETE FROM campaign_turns WHERE campaign_id = %s", s.bind(1))
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return err
	}
	q = fmt.Sprintf("DELETE FROM campaigns WHERE id = %s", s.bind(1))
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AppendCampaignTurns stores new turn records, skipping turns already
// present so re-persisting a snapshot is idempotent.
func (s *Store) AppendCampaignTurns(ctx context.Context, id string, records []campaign.TurnRecord) error {
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		var q string
		if s.dialect == DialectPostgres {
			q = fmt.Sprintf(
				"INSERT INTO campaign_turns (campaign_id, turn, record) VALUES (%s, %s, %s) ON CONFLICT (campaign_id, turn) DO NOTHING",
				s.bind(1), s.bind(2), s.bind(3),
			)
		} else {
			q = fmt.Sprintf(
				"INSERT OR IGNORE INTO campaign_turns (campaign_id, turn, record) VALUES (%s, %s, %s)",
				s.bind(1), s.bind(2), s.bind(3),
			)
		}
		if _, err := s.db.ExecContext(ctx, q, id, rec.Turn, string(raw)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListCampaignTurns(ctx context.Context, id string) ([]campaign.TurnRecord, error) {
	q := fmt.Sprintf(
		"SELECT record FROM campaign_turns WHERE campaign_id = %s ORDER BY turn",
		s.bind(1),
	)
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []campaign.TurnRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec campaign.TurnRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode campaign turn: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Portfolio is a stored portfolio row. Runs are replayed from the seed, so
// the row keeps the run parameters plus the latest book for display.
type Portfolio struct {
	ID          string
	Seed        int64
	ChessAI     bool
	Stance      string
	Alloc       string
	TurnLimit   int
	TurnsPlayed int
	Finished    bool
	Book        portfolio.Book
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *Store) CreatePortfolio(ctx context.Context, p Portfolio) error {
	raw, err := json.Marshal(p.Book)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	q := fmt.Sprintf(
		"INSERT INTO portfolios (id, seed, chess_ai, stance, alloc, turn_limit, turns_played, finished, book, created_at, updated_at) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)",
		s.bind(1), s.bind(2), s.bind(3), s.bind(4), s.bind(5), s.bind(6), s.bind(7), s.bind(8), s.bind(9), s.bind(10), s.bind(11),
	)
	_, err = s.db.ExecContext(ctx, q,
		p.ID, p.Seed, boolToInt(p.ChessAI), p.Stance, p.Alloc,
		p.TurnLimit, p.TurnsPlayed, boolToInt(p.Finished), string(raw), now, now,
	)
	return err
}

func (s *Store) GetPortfolio(ctx context.Context, id string) (Portfolio, error) {
	q := fmt.Sprintf(
		"SELECT id, seed, chess_ai, stance, alloc, turn_limit, turns_played, finished, book, created_at, updated_at FROM portfolios WHERE id = %s",
		s.bind(1),
	)
	return scanPortfolio(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, seed, chess_ai, stance, alloc, turn_limit, turns_played, finished, book, created_at, updated_at FROM portfolios ORDER BY created_at",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePortfolioProgress(ctx context.Context, id string, turnsPlayed int, finished bool, book portfolio.Book) error {
	raw, err := json.Marshal(book)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(
		"UPDATE portfolios SET turns_played = %s, finished = %s, book = %s, updated_at = %s WHERE id = %s",
		s.bind(1), s.bind(2), s.bind(3), s.bind(4), s.bind(5),
	)
	res, err := s.db.ExecContext(ctx, q, turnsPlayed, boolToInt(finished), string(raw), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) AppendPortfolioTurns(ctx context.Context, id string, records []portfolio.Record) error {
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		var q string
		if s.dialect == DialectPostgres {
			q = fmt.Sprintf(
				"INSERT INTO portfolio_turns (portfolio_id, turn, record) VALUES (%s, %s, %s) ON CONFLICT (portfolio_id, turn) DO NOTHING",
				s.bind(1), s.bind(2), s.bind(3),
			)
		} else {
			q = fmt.Sprintf(
				"INSERT OR IGNORE INTO portfolio_turns (portfolio_id, turn, record) VALUES (%s, %s, %s)",
				s.bind(1), s.bind(2), s.bind(3),
			)
		}
		if _, err := s.db.ExecContext(ctx, q, id, rec.Turn, string(raw)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListPortfolioTurns(ctx context.Context, id string) ([]portfolio.Record, error) {
	q := fmt.Sprintf(
		"SELECT record FROM portfolio_turns WHERE portfolio_id = %s ORDER BY turn",
		s.bind(1),
	)
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []portfolio.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec portfolio.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode portfolio turn: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (Campaign, error) {
	var c Campaign
	var autopilot int
	var raw string
	err := row.Scan(&c.ID, &c.Seed, &autopilot, &raw, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.Autopilot = autopilot != 0
	if err := json.Unmarshal([]byte(raw), &c.Snapshot); err != nil {
		return c, fmt.Errorf("decode campaign snapshot: %w", err)
	}
	return c, nil
}

func scanPortfolio(row rowScanner) (Portfolio, error) {
	var p Portfolio
	var chess, finished int
	var raw string
	err := row.Scan(&p.ID, &p.Seed, &chess, &p.Stance, &p.Alloc,
		&p.TurnLimit, &p.TurnsPlayed, &finished, &raw, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.ChessAI = chess != 0
	p.Finished = finished != 0
	if err := json.Unmarshal([]byte(raw), &p.Book); err != nil {
		return p, fmt.Errorf("decode portfolio book: %w", err)
	}
	return p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
