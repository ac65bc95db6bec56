package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/student-ledger/academics"
	"github.com/warp/student-ledger/generic"
)

// =============================================================================
// ATTENDANCE
// =============================================================================

const attendanceSelect = `
	SELECT a.id, a.student_id, COALESCE(st.name, ''), a.date, a.status, a.notes, a.created_at
	FROM attendance a
	LEFT JOIN students st ON st.id = a.student_id
`

// ListAttendance returns every attendance record, most recent day first.
func (s *Store) ListAttendance(ctx context.Context) ([]academics.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAttendance(ctx, attendanceSelect+` ORDER BY a.date DESC, a.created_at DESC`)
}

// AttendanceForStudent returns one student's attendance, most recent first.
func (s *Store) AttendanceForStudent(ctx context.Context, id generic.StudentID) ([]academics.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryAttendance(ctx, attendanceSelect+` WHERE a.student_id = ? ORDER BY a.date DESC, a.created_at DESC`, id)
}

// InsertAttendance records attendance rows in one transaction and returns
// their IDs in input order. One unknown student rejects the whole batch.
func (s *Store) InsertAttendance(ctx context.Context, records []academics.AttendanceRecord) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(records))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(s.now())
		for _, r := range records {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO attendance (student_id, date, status, notes, created_at)
				VALUES (?, ?, ?, ?, ?)
			`, r.StudentID, r.Date.String(), r.Status, nullString(r.Notes), now)
			if err != nil {
				if isForeignKeyError(err) {
					return &generic.NotFoundError{Kind: "student", ID: int64(r.StudentID)}
				}
				return fmt.Errorf("failed to insert attendance: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) queryAttendance(ctx context.Context, query string, args ...any) ([]academics.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	records := []academics.AttendanceRecord{}
	for rows.Next() {
		var (
			r         academics.AttendanceRecord
			date      string
			status    string
			notes     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.StudentID, &r.StudentName, &date, &status, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		if d, err := generic.ParseDate(date); err == nil {
			r.Date = d
		}
		r.Status = academics.AttendanceStatus(status)
		r.Notes = notes.String
		r.CreatedAt = parseTime(createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// RESULTS
// =============================================================================

const resultSelect = `
	SELECT r.id, r.student_id, COALESCE(st.name, ''), r.subject, r.term, r.marks,
	       r.grade, r.remarks, r.created_at
	FROM results r
	LEFT JOIN students st ON st.id = r.student_id
`

// ListResults returns every result, newest first.
func (s *Store) ListResults(ctx context.Context) ([]academics.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryResults(ctx, resultSelect+` ORDER BY r.created_at DESC, r.id DESC`)
}

// ResultsForStudent returns one student's results, newest first.
func (s *Store) ResultsForStudent(ctx context.Context, id generic.StudentID) ([]academics.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryResults(ctx, resultSelect+` WHERE r.student_id = ? ORDER BY r.created_at DESC, r.id DESC`, id)
}

// InsertResult stores a validated result. CreatedAt defaults to now.
func (s *Store) InsertResult(ctx context.Context, r academics.Result) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO results (student_id, subject, term, marks, grade, remarks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.StudentID, r.Subject, r.Term, r.Marks, academics.DeriveGrade(r.Marks),
		nullString(r.Remarks), formatTime(createdAt))
	if err != nil {
		if isForeignKeyError(err) {
			return 0, &generic.NotFoundError{Kind: "student", ID: int64(r.StudentID)}
		}
		return 0, fmt.Errorf("failed to insert result: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]academics.Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := []academics.Result{}
	for rows.Next() {
		var (
			r         academics.Result
			remarks   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.StudentID, &r.StudentName, &r.Subject, &r.Term, &r.Marks,
			&r.Grade, &remarks, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Remarks = remarks.String
		r.CreatedAt = parseTime(createdAt)
		results = append(results, r)
	}
	return results, rows.Err()
}
