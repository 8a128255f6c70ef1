package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS intakes (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    description TEXT,
    status TEXT DEFAULT 'collecting',
    symptoms_json TEXT,
    bundle_json TEXT,
    error TEXT,
    started_at TIMESTAMPTZ DEFAULT now(),
    finished_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_intakes_user ON intakes(user_id);

CREATE TABLE IF NOT EXISTS intake_messages (
    id BIGSERIAL PRIMARY KEY,
    intake_id TEXT NOT NULL REFERENCES intakes(id),
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_intake_messages_intake ON intake_messages(intake_id);

CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    intake_id TEXT NOT NULL REFERENCES intakes(id),
    question TEXT NOT NULL,
    answer TEXT,
    ready BOOLEAN DEFAULT FALSE,
    created_at TIMESTAMPTZ DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_questions_intake ON questions(intake_id);

CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    intake_id TEXT NOT NULL REFERENCES intakes(id),
    user_id TEXT NOT NULL,
    markdown TEXT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(user_id);

CREATE TABLE IF NOT EXISTS intake_events (
    id BIGSERIAL PRIMARY KEY,
    intake_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    payload_json TEXT,
    created_at TIMESTAMPTZ DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_intake_events_intake ON intake_events(intake_id);
`

// NewPostgresBundle creates a Bundle backed by PostgreSQL at the given DSN.
func NewPostgresBundle(ctx context.Context, dsn string) (*Bundle, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Bundle{
		Intakes:   &PostgresIntakeStore{pool: pool},
		Questions: &PostgresQuestionStore{pool: pool},
		Reports:   &PostgresReportStore{pool: pool},
		Events:    &PostgresEventStore{pool: pool},
		closer: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

// =============================================================================
// PostgresIntakeStore
// =============================================================================

type PostgresIntakeStore struct {
	pool *pgxpool.Pool
}

func (s *PostgresIntakeStore) CreateIntake(userID, description string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO intakes (id, user_id, description) VALUES ($1, $2, $3)`,
		id, userID, description,
	)
	if err != nil {
		return "", fmt.Errorf("create intake: %w", err)
	}
	return id, nil
}

func (s *PostgresIntakeStore) UpdateIntakeStatus(id, status string) error {
	finished := status == IntakeStatusCompleted || status == IntakeStatusFailed || status == IntakeStatusCancelled
	var err error
	if finished {
		_, err = s.pool.Exec(context.Background(),
			`UPDATE intakes SET status = $1, finished_at = now() WHERE id = $2`,
			status, id,
		)
	} else {
		_, err = s.pool.Exec(context.Background(),
			`UPDATE intakes SET status = $1 WHERE id = $2`, status, id)
	}
	return err
}

func (s *PostgresIntakeStore) SetSymptoms(id string, symptomsJSON string) error {
	_, err := s.pool.Exec(context.Background(),
		`UPDATE intakes SET symptoms_json = $1 WHERE id = $2`, symptomsJSON, id)
	return err
}

func (s *PostgresIntakeStore) SetBundle(id string, bundleJSON string) error {
	_, err := s.pool.Exec(context.Background(),
		`UPDATE intakes SET bundle_json = $1 WHERE id = $2`, bundleJSON, id)
	return err
}

func (s *PostgresIntakeStore) SetError(id string, errMsg string) error {
	_, err := s.pool.Exec(context.Background(),
		`UPDATE intakes SET error = $1 WHERE id = $2`, errMsg, id)
	return err
}

func (s *PostgresIntakeStore) GetIntake(id string) (*IntakeRecord, error) {
	row := s.pool.QueryRow(context.Background(),
		`SELECT id, user_id, description, status, symptoms_json, bundle_json, error, started_at, finished_at
		 FROM intakes WHERE id = $1`, id,
	)
	rec, err := scanIntakeRow(row)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("intake not found")
	}
	return rec, err
}

func (s *PostgresIntakeStore) ListIntakes(userID string, limit int) ([]IntakeRecord, error) {
	query := `SELECT id, user_id, description, status, symptoms_json, bundle_json, error, started_at, finished_at
	          FROM intakes`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []IntakeRecord
	for rows.Next() {
		rec, err := scanIntakeRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *PostgresIntakeStore) AppendMessage(intakeID, role, content string) error {
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO intake_messages (intake_id, role, content) VALUES ($1, $2, $3)`,
		intakeID, role, content,
	)
	return err
}

func (s *PostgresIntakeStore) GetMessages(intakeID string) ([]IntakeMessage, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT id, role, content, created_at FROM intake_messages WHERE intake_id = $1 ORDER BY id`,
		intakeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []IntakeMessage
	for rows.Next() {
		var m IntakeMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// =============================================================================
// PostgresQuestionStore
// =============================================================================

type PostgresQuestionStore struct {
	pool *pgxpool.Pool
}

func (s *PostgresQuestionStore) StoreQuestion(intakeID, question string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO questions (id, intake_id, question) VALUES ($1, $2, $3)`,
		id, intakeID, question,
	)
	if err != nil {
		return "", fmt.Errorf("store question: %w", err)
	}
	return id, nil
}

func (s *PostgresQuestionStore) SetAnswer(id, answer string) error {
	_, err := s.pool.Exec(context.Background(),
		`UPDATE questions SET answer = $1, ready = TRUE WHERE id = $2`,
		answer, id,
	)
	return err
}

func (s *PostgresQuestionStore) GetAnswer(id string) (string, bool, error) {
	var answer sql.NullString
	var ready bool
	err := s.pool.QueryRow(context.Background(),
		`SELECT answer, ready FROM questions WHERE id = $1`, id,
	).Scan(&answer, &ready)
	if err != nil {
		return "", false, err
	}
	if answer.Valid {
		return answer.String, ready, nil
	}
	return "", false, nil
}

func (s *PostgresQuestionStore) ListQuestions(intakeID string) ([]QuestionInfo, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT id, question, answer, ready FROM questions WHERE intake_id = $1 ORDER BY created_at`,
		intakeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []QuestionInfo
	for rows.Next() {
		var info QuestionInfo
		var answer sql.NullString
		if err := rows.Scan(&info.ID, &info.Question, &answer, &info.HasAnswer); err != nil {
			return nil, err
		}
		if answer.Valid {
			info.Answer = answer.String
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// =============================================================================
// PostgresReportStore
// =============================================================================

type PostgresReportStore struct {
	pool *pgxpool.Pool
}

func (s *PostgresReportStore) SaveReport(intakeID, userID, markdown string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO reports (id, intake_id, user_id, markdown) VALUES ($1, $2, $3, $4)`,
		id, intakeID, userID, markdown,
	)
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return id, nil
}

func (s *PostgresReportStore) GetReport(id string) (*ReportRecord, error) {
	var rec ReportRecord
	err := s.pool.QueryRow(context.Background(),
		`SELECT id, intake_id, user_id, markdown, created_at FROM reports WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.IntakeID, &rec.UserID, &rec.Markdown, &rec.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("report not found")
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresReportStore) ListReports(userID string, limit int) ([]ReportRecord, error) {
	query := `SELECT id, intake_id, user_id, markdown, created_at FROM reports`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ReportRecord
	for rows.Next() {
		var rec ReportRecord
		if err := rows.Scan(&rec.ID, &rec.IntakeID, &rec.UserID, &rec.Markdown, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// PostgresEventStore
// =============================================================================

type PostgresEventStore struct {
	pool *pgxpool.Pool
}

func (s *PostgresEventStore) AppendEvent(intakeID, eventType, payloadJSON string) error {
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO intake_events (intake_id, event_type, payload_json) VALUES ($1, $2, $3)`,
		intakeID, eventType, payloadJSON,
	)
	return err
}

func (s *PostgresEventStore) GetEvents(intakeID string) ([]IntakeEvent, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT id, intake_id, event_type, payload_json, created_at
		 FROM intake_events WHERE intake_id = $1 ORDER BY id`,
		intakeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []IntakeEvent
	for rows.Next() {
		var e IntakeEvent
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.IntakeID, &e.Type, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.PayloadJSON = payload.String
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
