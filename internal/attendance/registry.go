package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"presentsmart/internal/account"
	"presentsmart/internal/metrics"
)

const maxGenerateAttempts = 5

// CodeStore persists attendance codes. Lookups return (nil, nil) when
// nothing matches; InsertCode reports a taken code value as errCodeTaken.
type CodeStore interface {
	InsertCode(ctx context.Context, c *Code) error
	CodeByValue(ctx context.Context, code string) (*Code, error)
	CodesByTeacherSince(ctx context.Context, teacherID string, since time.Time) ([]Code, error)
	PurgeCodes(ctx context.Context, createdBefore time.Time) (int64, error)
}

// Roster resolves callers to their teacher or student profile.
type Roster interface {
	TeacherByUserID(ctx context.Context, userID string) (*account.Teacher, error)
	StudentByUserID(ctx context.Context, userID string) (*account.Student, error)
	CountStudents(ctx context.Context, teacherID string) (int, error)
}

// Registry issues and validates attendance codes.
type Registry struct {
	store   CodeStore
	roster  Roster
	ttl     time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newCode func() (string, error)
}

// NewRegistry creates a registry issuing codes valid for ttl.
func NewRegistry(store CodeStore, roster Roster, ttl time.Duration, log *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		store:   store,
		roster:  roster,
		ttl:     ttl,
		log:     log,
		metrics: m,
		now:     time.Now,
		newCode: newCodeValue,
	}
}

// TTL is how long issued codes stay valid.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Generate issues a code for the teacher behind userID. An empty class
// label falls back to the teacher's department.
func (r *Registry) Generate(ctx context.Context, userID, classLabel string) (*Code, error) {
	teacher, err := r.roster.TeacherByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup teacher: %w", err)
	}
	if teacher == nil {
		return nil, account.ErrNoTeacher
	}
	classLabel = strings.TrimSpace(classLabel)
	if classLabel == "" {
		classLabel = teacher.Department
	}

	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		value, err := r.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		now := r.now().UTC()
		c := &Code{
			Code:       value,
			TeacherID:  teacher.ID,
			ClassLabel: classLabel,
			CreatedAt:  now,
			ExpiresAt:  now.Add(r.ttl),
		}
		err = r.store.InsertCode(ctx, c)
		if errors.Is(err, errCodeTaken) {
			r.log.Debug("attendance code collision", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store code: %w", err)
		}
		r.metrics.CodeGenerated()
		r.log.Info("attendance code generated",
			zap.String("teacher_id", teacher.ID),
			zap.String("code_id", c.ID),
			zap.Time("expires_at", c.ExpiresAt))
		return c, nil
	}
	return nil, fmt.Errorf("generate code: no free value after %d attempts", maxGenerateAttempts)
}

// Validate looks up a code and checks that it has not expired.
func (r *Registry) Validate(ctx context.Context, code string) (*Code, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	c, err := r.store.CodeByValue(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup code: %w", err)
	}
	if c == nil {
		return nil, ErrCodeNotFound
	}
	if !IsValid(*c, r.now()) {
		return nil, ErrCodeExpired
	}
	return c, nil
}
