package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/student-ledger/academics"
	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// STUDENTS
// =============================================================================

const studentColumns = `id, name, age, course, email, photo, created_at, updated_at`

var errEmailExists = &generic.DuplicateError{Field: "email", Message: "Email already exists"}

// ListStudents returns all students, newest first.
func (s *Store) ListStudents(ctx context.Context) ([]academics.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryStudents(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY created_at DESC, id DESC`)
}

// SearchStudents returns students whose name contains term, by name.
func (s *Store) SearchStudents(ctx context.Context, term string) ([]academics.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryStudents(ctx,
		`SELECT `+studentColumns+` FROM students WHERE name LIKE ? ORDER BY name`,
		"%"+term+"%")
}

// GetStudent returns a student, or nil when it doesn't exist.
func (s *Store) GetStudent(ctx context.Context, id generic.StudentID) (*academics.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getStudent(ctx, id)
}

func (s *Store) getStudent(ctx context.Context, id generic.StudentID) (*academics.Student, error) {
	students, err := s.queryStudents(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, nil
	}
	return &students[0], nil
}

// CreateStudent inserts a validated student.
func (s *Store) CreateStudent(ctx context.Context, in academics.StudentInput) (academics.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO students (name, age, course, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, in.Name, in.Age, in.Course, in.Email, formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueConstraintError(err) {
			return academics.Student{}, errEmailExists
		}
		return academics.Student{}, fmt.Errorf("failed to insert student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return academics.Student{}, err
	}
	return academics.Student{
		ID:        generic.StudentID(id),
		Name:      in.Name,
		Age:       in.Age,
		Course:    in.Course,
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateStudent replaces the editable fields of a student.
func (s *Store) UpdateStudent(ctx context.Context, id generic.StudentID, in academics.StudentInput) (academics.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE students SET name = ?, age = ?, course = ?, email = ?, updated_at = ?
		WHERE id = ?
	`, in.Name, in.Age, in.Course, in.Email, formatTime(s.now()), id)
	if err != nil {
		if isUniqueConstraintError(err) {
			return academics.Student{}, errEmailExists
		}
		return academics.Student{}, fmt.Errorf("failed to update student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return academics.Student{}, &generic.NotFoundError{Kind: "student", ID: int64(id)}
	}

	st, err := s.getStudent(ctx, id)
	if err != nil {
		return academics.Student{}, err
	}
	return *st, nil
}

// SetStudentPhoto stores a new photo path and returns the previous one.
func (s *Store) SetStudentPhoto(ctx context.Context, id generic.StudentID, photo string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var previous string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var old sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT photo FROM students WHERE id = ?`, id).Scan(&old)
		if err == sql.ErrNoRows {
			return &generic.NotFoundError{Kind: "student", ID: int64(id)}
		}
		if err != nil {
			return fmt.Errorf("failed to read student photo: %w", err)
		}
		previous = old.String

		_, err = tx.ExecContext(ctx, `UPDATE students SET photo = ?, updated_at = ? WHERE id = ?`,
			nullString(photo), formatTime(s.now()), id)
		if err != nil {
			return fmt.Errorf("failed to update student photo: %w", err)
		}
		return nil
	})
	return previous, err
}

// DeleteStudent removes a student with its attendance, results, invoices
// and payments. Returns the deleted record so callers can remove its photo.
func (s *Store) DeleteStudent(ctx context.Context, id generic.StudentID) (academics.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.getStudent(ctx, id)
	if err != nil {
		return academics.Student{}, err
	}
	if st == nil {
		return academics.Student{}, &generic.NotFoundError{Kind: "student", ID: int64(id)}
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id); err != nil {
		return academics.Student{}, fmt.Errorf("failed to delete student: %w", err)
	}
	return *st, nil
}

func (s *Store) queryStudents(ctx context.Context, query string, args ...any) ([]academics.Student, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	students := []academics.Student{}
	for rows.Next() {
		var (
			st                   academics.Student
			photo                sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&st.ID, &st.Name, &st.Age, &st.Course, &st.Email, &photo,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		st.Photo = photo.String
		st.CreatedAt = parseTime(createdAt)
		st.UpdatedAt = parseTime(updatedAt)
		students = append(students, st)
	}
	return students, rows.Err()
}
