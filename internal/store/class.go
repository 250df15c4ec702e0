package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/pavelanni/evalforge/internal/model"
)

// CreateClass inserts a class, assigning an ID when none is set.
func (s *Store) CreateClass(c model.Class) (model.Class, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO classes (id, name, subject, professor_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Subject, c.ProfessorID, c.CreatedAt,
	)
	if err != nil {
		slog.Error("failed to create class", "name", c.Name, "error", err)
		return c, err
	}
	slog.Info("created class", "id", c.ID, "name", c.Name, "professor_id", c.ProfessorID)
	return c, nil
}

// GetClass returns a class by ID.
func (s *Store) GetClass(id string) (model.Class, error) {
	var c model.Class
	err := s.db.QueryRow(
		`SELECT id, name, subject, professor_id, created_at FROM classes WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Subject, &c.ProfessorID, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

// ListClasses returns classes ordered by name. An empty professorID lists all classes.
func (s *Store) ListClasses(professorID string) ([]model.Class, error) {
	query := `SELECT id, name, subject, professor_id, created_at FROM classes WHERE 1=1`
	var args []any
	if professorID != "" {
		query += ` AND professor_id = ?`
		args = append(args, professorID)
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	classes := []model.Class{}
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Subject, &c.ProfessorID, &c.CreatedAt); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// DeleteClass removes a class and its evaluation links.
func (s *Store) DeleteClass(id string) error {
	res, err := s.db.Exec(`DELETE FROM classes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
