package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/evalforge/internal/model"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownClass is returned when an evaluation references a class that does not exist.
	ErrUnknownClass = errors.New("unknown class")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		subject TEXT NOT NULL,
		date TEXT NOT NULL,
		duration REAL NOT NULL,
		total_points REAL NOT NULL,
		professor_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		evaluation_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		question_key TEXT NOT NULL,
		number INTEGER NOT NULL,
		statement TEXT NOT NULL,
		model_answer TEXT NOT NULL DEFAULT '',
		points REAL NOT NULL,
		estimated_lines REAL NOT NULL DEFAULT 5,
		FOREIGN KEY (evaluation_id) REFERENCES evaluations(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS classes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		subject TEXT NOT NULL,
		professor_id TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS evaluation_classes (
		evaluation_id TEXT NOT NULL,
		class_id TEXT NOT NULL,
		PRIMARY KEY (evaluation_id, class_id),
		FOREIGN KEY (evaluation_id) REFERENCES evaluations(id) ON DELETE CASCADE,
		FOREIGN KEY (class_id) REFERENCES classes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SaveEvaluation stores a normalized evaluation with its questions and class links.
// The store owns identifiers: a missing or already used ID is replaced, and the
// returned evaluation carries the ID actually stored.
func (s *Store) SaveEvaluation(ev model.Evaluation) (model.Evaluation, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return ev, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if ev.ID == "" {
		ev.ID = newID()
	} else {
		var n int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM evaluations WHERE id = ?`, ev.ID).Scan(&n); err != nil {
			return ev, fmt.Errorf("check evaluation id %s: %w", ev.ID, err)
		}
		if n > 0 {
			ev.ID = newID()
		}
	}

	if err := checkClasses(tx, ev.ClassIDs); err != nil {
		return ev, err
	}

	now := time.Now()
	_, err = tx.Exec(
		`INSERT INTO evaluations (id, title, subject, date, duration, total_points, professor_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Title, ev.Subject, ev.Date, ev.Duration, ev.TotalPoints, ev.ProfessorID, ev.Status, now, now,
	)
	if err != nil {
		return ev, fmt.Errorf("insert evaluation: %w", err)
	}

	for i, q := range ev.Questions {
		_, err := tx.Exec(
			`INSERT INTO questions (evaluation_id, position, question_key, number, statement, model_answer, points, estimated_lines)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, i, q.ID, q.Number, q.Statement, q.ModelAnswer, q.Points, q.EstimatedLines,
		)
		if err != nil {
			return ev, fmt.Errorf("insert question %d: %w", i+1, err)
		}
	}

	// Duplicate class IDs in a draft collapse to one link.
	for _, classID := range ev.ClassIDs {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO evaluation_classes (evaluation_id, class_id) VALUES (?, ?)`,
			ev.ID, classID,
		)
		if err != nil {
			return ev, fmt.Errorf("link class %s: %w", classID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ev, fmt.Errorf("commit evaluation: %w", err)
	}
	return ev, nil
}

// checkClasses fails with ErrUnknownClass when any class ID does not exist.
func checkClasses(tx *sql.Tx, classIDs []string) error {
	for _, classID := range classIDs {
		var n int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM classes WHERE id = ?`, classID).Scan(&n); err != nil {
			return fmt.Errorf("check class %s: %w", classID, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrUnknownClass, classID)
		}
	}
	return nil
}

// GetEvaluation returns an evaluation with its questions and class IDs.
func (s *Store) GetEvaluation(id string) (model.Evaluation, error) {
	var ev model.Evaluation
	err := s.db.QueryRow(
		`SELECT id, title, subject, date, duration, total_points, professor_id, status
		 FROM evaluations WHERE id = ?`, id,
	).Scan(&ev.ID, &ev.Title, &ev.Subject, &ev.Date, &ev.Duration, &ev.TotalPoints, &ev.ProfessorID, &ev.Status)
	if err == sql.ErrNoRows {
		return ev, ErrNotFound
	}
	if err != nil {
		return ev, err
	}

	if ev.Questions, err = s.getQuestions(id); err != nil {
		return ev, err
	}
	if ev.ClassIDs, err = s.getEvaluationClassIDs(id); err != nil {
		return ev, err
	}
	return ev, nil
}

func (s *Store) getQuestions(evaluationID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT question_key, number, statement, model_answer, points, estimated_lines
		 FROM questions WHERE evaluation_id = ? ORDER BY position`, evaluationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Number, &q.Statement, &q.ModelAnswer, &q.Points, &q.EstimatedLines); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) getEvaluationClassIDs(evaluationID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT class_id FROM evaluation_classes WHERE evaluation_id = ? ORDER BY rowid`, evaluationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListEvaluations returns evaluation summaries, newest first. An empty
// professorID lists every professor's evaluations.
func (s *Store) ListEvaluations(professorID string) ([]model.EvaluationSummary, error) {
	query := `SELECT e.id, e.title, e.subject, e.date, e.total_points, e.status, e.created_at,
		(SELECT COUNT(*) FROM questions q WHERE q.evaluation_id = e.id)
		FROM evaluations e WHERE 1=1`
	var args []any
	if professorID != "" {
		query += ` AND e.professor_id = ?`
		args = append(args, professorID)
	}
	query += ` ORDER BY e.created_at DESC, e.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []model.EvaluationSummary{}
	for rows.Next() {
		var e model.EvaluationSummary
		if err := rows.Scan(&e.ID, &e.Title, &e.Subject, &e.Date, &e.TotalPoints, &e.Status, &e.CreatedAt, &e.QuestionCount); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// UpdateEvaluationStatus moves an evaluation to a new lifecycle status.
func (s *Store) UpdateEvaluationStatus(id string, status model.EvaluationStatus) error {
	res, err := s.db.Exec(`UPDATE evaluations SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// DeleteEvaluation removes an evaluation; questions and class links cascade.
func (s *Store) DeleteEvaluation(id string) error {
	res, err := s.db.Exec(`DELETE FROM evaluations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// EvaluationCount returns the number of stored evaluations.
func (s *Store) EvaluationCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM evaluations`).Scan(&count)
	return count, err
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
