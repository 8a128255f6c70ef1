package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS intakes (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    description TEXT,
    status TEXT DEFAULT 'collecting',
    symptoms_json TEXT,
    bundle_json TEXT,
    error TEXT,
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    finished_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_intakes_user ON intakes(user_id);

CREATE TABLE IF NOT EXISTS intake_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    intake_id TEXT NOT NULL REFERENCES intakes(id),
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_intake_messages_intake ON intake_messages(intake_id);

CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    intake_id TEXT NOT NULL REFERENCES intakes(id),
    question TEXT NOT NULL,
    answer TEXT,
    ready INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_questions_intake ON questions(intake_id);

CREATE TABLE IF NOT EXISTS reports (
    id TEXT PRIMARY KEY,
    intake_id TEXT NOT NULL REFERENCES intakes(id),
    user_id TEXT NOT NULL,
    markdown TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(user_id);

CREATE TABLE IF NOT EXISTS intake_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    intake_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    payload_json TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_intake_events_intake ON intake_events(intake_id);
`

// NewSQLiteBundle creates a Bundle backed by SQLite at the given path
func NewSQLiteBundle(dbPath string) (*Bundle, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Bundle{
		Intakes:   &SQLiteIntakeStore{db: db},
		Questions: &SQLiteQuestionStore{db: db},
		Reports:   &SQLiteReportStore{db: db},
		Events:    &SQLiteEventStore{db: db},
		closer:    db.Close,
	}, nil
}

// =============================================================================
// SQLiteIntakeStore
// =============================================================================

type SQLiteIntakeStore struct {
	db *sql.DB
}

func (s *SQLiteIntakeStore) CreateIntake(userID, description string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO intakes (id, user_id, description) VALUES (?, ?, ?)`,
		id, userID, description,
	)
	if err != nil {
		return "", fmt.Errorf("create intake: %w", err)
	}
	return id, nil
}

func (s *SQLiteIntakeStore) UpdateIntakeStatus(id, status string) error {
	finished := status == IntakeStatusCompleted || status == IntakeStatusFailed || status == IntakeStatusCancelled
	var err error
	if finished {
		_, err = s.db.Exec(
			`UPDATE intakes SET status = ?, finished_at = CURRENT_TIMESTAMP WHERE id = ?`,
			status, id,
		)
	} else {
		_, err = s.db.Exec(`UPDATE intakes SET status = ? WHERE id = ?`, status, id)
	}
	return err
}

func (s *SQLiteIntakeStore) SetSymptoms(id string, symptomsJSON string) error {
	_, err := s.db.Exec(`UPDATE intakes SET symptoms_json = ? WHERE id = ?`, symptomsJSON, id)
	return err
}

func (s *SQLiteIntakeStore) SetBundle(id string, bundleJSON string) error {
	_, err := s.db.Exec(`UPDATE intakes SET bundle_json = ? WHERE id = ?`, bundleJSON, id)
	return err
}

func (s *SQLiteIntakeStore) SetError(id string, errMsg string) error {
	_, err := s.db.Exec(`UPDATE intakes SET error = ? WHERE id = ?`, errMsg, id)
	return err
}

func (s *SQLiteIntakeStore) GetIntake(id string) (*IntakeRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, user_id, description, status, symptoms_json, bundle_json, error, started_at, finished_at
		 FROM intakes WHERE id = ?`, id,
	)
	return scanIntake(row)
}

func (s *SQLiteIntakeStore) ListIntakes(userID string, limit int) ([]IntakeRecord, error) {
	query := `SELECT id, user_id, description, status, symptoms_json, bundle_json, error, started_at, finished_at
	          FROM intakes`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
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

func (s *SQLiteIntakeStore) AppendMessage(intakeID, role, content string) error {
	_, err := s.db.Exec(
		`INSERT INTO intake_messages (intake_id, role, content) VALUES (?, ?, ?)`,
		intakeID, role, content,
	)
	return err
}

func (s *SQLiteIntakeStore) GetMessages(intakeID string) ([]IntakeMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, created_at FROM intake_messages WHERE intake_id = ? ORDER BY id`,
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntake(row rowScanner) (*IntakeRecord, error) {
	rec, err := scanIntakeRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("intake not found")
	}
	return rec, err
}

func scanIntakeRow(row rowScanner) (*IntakeRecord, error) {
	var rec IntakeRecord
	var symptoms, bundle, errMsg sql.NullString
	var finished sql.NullTime
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Description, &rec.Status,
		&symptoms, &bundle, &errMsg, &rec.StartedAt, &finished); err != nil {
		return nil, err
	}
	if symptoms.Valid {
		rec.SymptomsJSON = &symptoms.String
	}
	if bundle.Valid {
		rec.BundleJSON = &bundle.String
	}
	if errMsg.Valid {
		rec.Error = &errMsg.String
	}
	if finished.Valid {
		t := finished.Time
		rec.FinishedAt = &t
	}
	return &rec, nil
}

// =============================================================================
// SQLiteQuestionStore
// =============================================================================

type SQLiteQuestionStore struct {
	db *sql.DB
}

func (s *SQLiteQuestionStore) StoreQuestion(intakeID, question string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO questions (id, intake_id, question) VALUES (?, ?, ?)`,
		id, intakeID, question,
	)
	if err != nil {
		return "", fmt.Errorf("store question: %w", err)
	}
	return id, nil
}

func (s *SQLiteQuestionStore) SetAnswer(id, answer string) error {
	_, err := s.db.Exec(
		`UPDATE questions SET answer = ?, ready = 1 WHERE id = ?`,
		answer, id,
	)
	return err
}

func (s *SQLiteQuestionStore) GetAnswer(id string) (string, bool, error) {
	var answer sql.NullString
	var ready int
	err := s.db.QueryRow(`SELECT answer, ready FROM questions WHERE id = ?`, id).Scan(&answer, &ready)
	if err != nil {
		return "", false, err
	}
	if answer.Valid {
		return answer.String, ready != 0, nil
	}
	return "", false, nil
}

func (s *SQLiteQuestionStore) ListQuestions(intakeID string) ([]QuestionInfo, error) {
	rows, err := s.db.Query(
		`SELECT id, question, answer, ready FROM questions WHERE intake_id = ? ORDER BY created_at, rowid`,
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
		var ready int
		if err := rows.Scan(&info.ID, &info.Question, &answer, &ready); err != nil {
			return nil, err
		}
		if answer.Valid {
			info.Answer = answer.String
		}
		info.HasAnswer = ready != 0
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// =============================================================================
// SQLiteReportStore
// =============================================================================

type SQLiteReportStore struct {
	db *sql.DB
}

func (s *SQLiteReportStore) SaveReport(intakeID, userID, markdown string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO reports (id, intake_id, user_id, markdown) VALUES (?, ?, ?, ?)`,
		id, intakeID, userID, markdown,
	)
	if err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return id, nil
}

func (s *SQLiteReportStore) GetReport(id string) (*ReportRecord, error) {
	var rec ReportRecord
	err := s.db.QueryRow(
		`SELECT id, intake_id, user_id, markdown, created_at FROM reports WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.IntakeID, &rec.UserID, &rec.Markdown, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report not found")
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteReportStore) ListReports(userID string, limit int) ([]ReportRecord, error) {
	query := `SELECT id, intake_id, user_id, markdown, created_at FROM reports`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
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
// SQLiteEventStore
// =============================================================================

type SQLiteEventStore struct {
	db *sql.DB
}

func (s *SQLiteEventStore) AppendEvent(intakeID, eventType, payloadJSON string) error {
	_, err := s.db.Exec(
		`INSERT INTO intake_events (intake_id, event_type, payload_json) VALUES (?, ?, ?)`,
		intakeID, eventType, payloadJSON,
	)
	return err
}

func (s *SQLiteEventStore) GetEvents(intakeID string) ([]IntakeEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, intake_id, event_type, payload_json, created_at
		 FROM intake_events WHERE intake_id = ? ORDER BY id`,
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
