package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"presentsmart/internal/store"
)

const recordColumns = `id, student_id, code_id, code, class_label, teacher_id, code_created_at, submitted_at, to_char(attended_on, 'YYYY-MM-DD')`

// Repository persists attendance codes and records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertCode writes a new code. A taken code value yields errCodeTaken.
func (r *Repository) InsertCode(ctx context.Context, c *Code) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_codes (id, code, teacher_id, class_label, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, c.ID, c.Code, c.TeacherID, c.ClassLabel, c.CreatedAt, c.ExpiresAt)
	if _, dup := store.UniqueViolation(err); dup {
		return errCodeTaken
	}
	return err
}

// CodeByValue returns the code with the given value.
func (r *Repository) CodeByValue(ctx context.Context, code string) (*Code, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, code, teacher_id, class_label, created_at, expires_at
		FROM attendance_codes WHERE code = $1
	`, code)
	var c Code
	if err := row.Scan(&c.ID, &c.Code, &c.TeacherID, &c.ClassLabel, &c.CreatedAt, &c.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// CodesByTeacherSince lists codes a teacher issued at or after since.
func (r *Repository) CodesByTeacherSince(ctx context.Context, teacherID string, since time.Time) ([]Code, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, teacher_id, class_label, created_at, expires_at
		FROM attendance_codes
		WHERE teacher_id = $1 AND created_at >= $2
		ORDER BY created_at
	`, teacherID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Code
	for rows.Next() {
		var c Code
		if err := rows.Scan(&c.ID, &c.Code, &c.TeacherID, &c.ClassLabel, &c.CreatedAt, &c.ExpiresAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// PurgeCodes deletes codes created before the cutoff and reports how many.
func (r *Repository) PurgeCodes(ctx context.Context, createdBefore time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_codes WHERE created_at < $1`, createdBefore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertRecord writes a redemption. The once-per-day constraint surfaces
// as ErrDuplicate.
func (r *Repository) InsertRecord(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records
			(id, student_id, code_id, code, class_label, teacher_id, code_created_at, submitted_at, attended_on)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::date)
	`, rec.ID, rec.StudentID, rec.CodeID, rec.Code, rec.ClassLabel, rec.TeacherID, rec.CodeCreatedAt, rec.SubmittedAt, rec.AttendedOn)
	if _, dup := store.UniqueViolation(err); dup {
		return ErrDuplicate
	}
	return err
}

// RecordsByStudent returns up to limit records, newest first.
func (r *Repository) RecordsByStudent(ctx context.Context, studentID string, limit int) ([]Record, error) {
	return r.listRecords(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE student_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2
	`, studentID, limit)
}

// RecordsForTeacherSince returns records against the teacher's codes issued
// at or after since, limited to students currently on the teacher's roster.
func (r *Repository) RecordsForTeacherSince(ctx context.Context, teacherID string, since time.Time) ([]Record, error) {
	return r.listRecords(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE teacher_id = $1
		  AND code_created_at >= $2
		  AND student_id IN (SELECT id FROM students WHERE teacher_id = $1)
		ORDER BY code_created_at
	`, teacherID, since)
}

func (r *Repository) listRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.CodeID, &rec.Code, &rec.ClassLabel, &rec.TeacherID,
			&rec.CodeCreatedAt, &rec.SubmittedAt, &rec.AttendedOn); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
