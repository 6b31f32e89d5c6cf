package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"presentsmart/internal/store"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PGRepository persists accounts in Postgres.
type PGRepository struct {
	db *sql.DB
	q  querier
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db, q: db}
}

// InTx runs fn against a repository bound to a single transaction.
func (r *PGRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&PGRepository{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CreateUser inserts u, assigning an ID. A taken email yields ErrUserExists.
func (r *PGRepository) CreateUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, user_type, email_verified, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, u.ID, u.Email, u.PasswordHash, u.Name, u.UserType, u.EmailVerified, u.CreatedAt, u.UpdatedAt)
	if _, dup := store.UniqueViolation(err); dup {
		return ErrUserExists
	}
	return err
}

const userColumns = `id, email, password_hash, name, user_type, email_verified, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.UserType, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// UserByEmail returns nil when no user has email.
func (r *PGRepository) UserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// UserByID returns nil when the user does not exist.
func (r *PGRepository) UserByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// CreateTeacher inserts a teacher profile.
func (r *PGRepository) CreateTeacher(ctx context.Context, t *Teacher) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO teachers (id, user_id, email, name, department, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, t.ID, t.UserID, t.Email, t.Name, t.Department, t.CreatedAt, t.UpdatedAt)
	if _, dup := store.UniqueViolation(err); dup {
		return ErrUserExists
	}
	return err
}

const teacherColumns = `id, user_id, email, name, department, created_at, updated_at`

func scanTeacher(row *sql.Row) (*Teacher, error) {
	var t Teacher
	if err := row.Scan(&t.ID, &t.UserID, &t.Email, &t.Name, &t.Department, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// TeacherByUserID returns nil when the user has no teacher profile.
func (r *PGRepository) TeacherByUserID(ctx context.Context, userID string) (*Teacher, error) {
	return scanTeacher(r.q.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE user_id = $1`, userID))
}

// TeacherByID returns nil when the teacher does not exist.
func (r *PGRepository) TeacherByID(ctx context.Context, id string) (*Teacher, error) {
	return scanTeacher(r.q.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id))
}

// CreateStudent inserts a roster entry.
func (r *PGRepository) CreateStudent(ctx context.Context, s *Student) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO students (id, user_id, teacher_id, email, name, department, class, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, s.ID, s.UserID, s.TeacherID, s.Email, s.Name, s.Department, s.Class, s.CreatedAt, s.UpdatedAt)
	if _, dup := store.UniqueViolation(err); dup {
		return ErrUserExists
	}
	return err
}

// UpdateStudent rewrites the mutable fields of s.
func (r *PGRepository) UpdateStudent(ctx context.Context, s *Student) error {
	s.UpdatedAt = time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		UPDATE students
		SET user_id = $2, teacher_id = $3, name = $4, department = $5, class = $6, updated_at = $7
		WHERE id = $1
	`, s.ID, s.UserID, s.TeacherID, s.Name, s.Department, s.Class, s.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update student %s: %w", s.ID, sql.ErrNoRows)
	}
	return nil
}

const studentColumns = `id, user_id, teacher_id, email, name, department, class, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (*Student, error) {
	var (
		s         Student
		userID    sql.NullString
		teacherID sql.NullString
	)
	if err := row.Scan(&s.ID, &userID, &teacherID, &s.Email, &s.Name, &s.Department, &s.Class, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if userID.Valid {
		s.UserID = &userID.String
	}
	if teacherID.Valid {
		s.TeacherID = &teacherID.String
	}
	return &s, nil
}

// StudentByEmail returns nil when no roster entry has email.
func (r *PGRepository) StudentByEmail(ctx context.Context, email string) (*Student, error) {
	return scanStudent(r.q.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE email = $1`, email))
}

// StudentByUserID returns nil when the user has no student profile.
func (r *PGRepository) StudentByUserID(ctx context.Context, userID string) (*Student, error) {
	return scanStudent(r.q.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE user_id = $1`, userID))
}

// StudentsByTeacher lists the teacher's roster ordered by name.
func (r *PGRepository) StudentsByTeacher(ctx context.Context, teacherID string) ([]Student, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+studentColumns+` FROM students WHERE teacher_id = $1 ORDER BY name`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *s)
	}
	return res, rows.Err()
}

// CountStudents returns the teacher's current roster size.
func (r *PGRepository) CountStudents(ctx context.Context, teacherID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM students WHERE teacher_id = $1`, teacherID).Scan(&n)
	return n, err
}

// CreateInvite stores an invitation.
func (r *PGRepository) CreateInvite(ctx context.Context, inv *Invitation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	inv.CreatedAt = time.Now().UTC()
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO student_invites (id, email, token, expires_at, used, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, inv.ID, inv.Email, inv.Token, inv.ExpiresAt, inv.Used, inv.CreatedBy, inv.CreatedAt)
	return err
}

// InviteByToken returns nil when no invitation carries token.
func (r *PGRepository) InviteByToken(ctx context.Context, token string) (*Invitation, error) {
	var inv Invitation
	err := r.q.QueryRowContext(ctx, `
		SELECT id, email, token, expires_at, used, created_by, created_at
		FROM student_invites WHERE token = $1
	`, token).Scan(&inv.ID, &inv.Email, &inv.Token, &inv.ExpiresAt, &inv.Used, &inv.CreatedBy, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// MarkInviteUsed flags an invitation as redeemed. Redeeming twice fails
// with ErrInvalidInvite.
func (r *PGRepository) MarkInviteUsed(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE student_invites SET used = TRUE WHERE id = $1 AND used = FALSE`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidInvite
	}
	return nil
}
