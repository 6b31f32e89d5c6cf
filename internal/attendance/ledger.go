package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"presentsmart/internal/account"
	"presentsmart/internal/metrics"
)

// Record is one redemption of an attendance code. The code's value, class
// and creation time are copied in so records outlive purged codes.
type Record struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"studentId"`
	CodeID        string    `json:"codeId"`
	Code          string    `json:"code"`
	ClassLabel    string    `json:"class"`
	TeacherID     string    `json:"teacherId"`
	CodeCreatedAt time.Time `json:"codeCreatedAt"`
	SubmittedAt   time.Time `json:"submittedAt"`
	AttendedOn    string    `json:"attendedOn"`
}

// RecordStore persists attendance records. InsertRecord reports a second
// record for the same student, code and day as ErrDuplicate.
type RecordStore interface {
	InsertRecord(ctx context.Context, rec *Record) error
	RecordsByStudent(ctx context.Context, studentID string, limit int) ([]Record, error)
	RecordsForTeacherSince(ctx context.Context, teacherID string, since time.Time) ([]Record, error)
}

// LedgerOptions tunes the ledger.
type LedgerOptions struct {
	HistoryLimit int
	WindowDays   int
	Location     *time.Location
}

// Ledger records code redemptions and reports on them.
type Ledger struct {
	registry *Registry
	codes    CodeStore
	records  RecordStore
	roster   Roster
	opts     LedgerOptions
	log      *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewLedger creates a ledger. Zero options fall back to 50 history
// entries, a 7 day window and UTC days.
func NewLedger(registry *Registry, codes CodeStore, records RecordStore, roster Roster, opts LedgerOptions, log *zap.Logger, m *metrics.Metrics) *Ledger {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Ledger{
		registry: registry,
		codes:    codes,
		records:  records,
		roster:   roster,
		opts:     opts,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Submit marks the student behind userID present for code.
func (l *Ledger) Submit(ctx context.Context, userID, code string) (*Record, error) {
	rec, err := l.submit(ctx, userID, code)
	l.metrics.Submission(outcome(err))
	return rec, err
}

func (l *Ledger) submit(ctx context.Context, userID, code string) (*Record, error) {
	c, err := l.registry.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	student, err := l.roster.StudentByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup student: %w", err)
	}
	if student == nil {
		return nil, account.ErrNoStudent
	}

	now := l.now().UTC()
	rec := &Record{
		StudentID:     student.ID,
		CodeID:        c.ID,
		Code:          c.Code,
		ClassLabel:    c.ClassLabel,
		TeacherID:     c.TeacherID,
		CodeCreatedAt: c.CreatedAt,
		SubmittedAt:   now,
		AttendedOn:    now.In(l.opts.Location).Format(dayLayout),
	}
	if err := l.records.InsertRecord(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("store record: %w", err)
	}
	l.log.Info("attendance recorded",
		zap.String("student_id", student.ID),
		zap.String("code_id", c.ID),
		zap.String("attended_on", rec.AttendedOn))
	return rec, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrCodeExpired):
		return "expired"
	case errors.Is(err, ErrCodeNotFound), errors.Is(err, account.ErrNoStudent):
		return "not_found"
	case errors.Is(err, ErrCodeRequired):
		return "invalid"
	default:
		return "error"
	}
}

// History returns the caller's most recent records, newest first.
func (l *Ledger) History(ctx context.Context, userID string) ([]Record, error) {
	student, err := l.roster.StudentByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup student: %w", err)
	}
	if student == nil {
		return nil, account.ErrNoStudent
	}
	records, err := l.records.RecordsByStudent(ctx, student.ID, l.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Stats reports the caller's attendance per class day over the window.
func (l *Ledger) Stats(ctx context.Context, userID string) (*Report, error) {
	teacher, err := l.roster.TeacherByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup teacher: %w", err)
	}
	if teacher == nil {
		return nil, account.ErrNoTeacher
	}
	total, err := l.roster.CountStudents(ctx, teacher.ID)
	if err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}

	since := l.now().UTC().AddDate(0, 0, -l.opts.WindowDays)
	codes, err := l.codes.CodesByTeacherSince(ctx, teacher.ID, since)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	records, err := l.records.RecordsForTeacherSince(ctx, teacher.ID, since)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return &Report{
		TotalStudents: total,
		Stats:         Aggregate(codes, records, total, l.opts.Location),
	}, nil
}
