//go:build integration

package attendance

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"presentsmart/internal/account"
	"presentsmart/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := store.NewDB(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db.Client, zap.NewNop()))
	return db
}

func seedRoster(t *testing.T, accounts *account.PGRepository) (teacher account.Teacher, studentUserID string) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	tu := account.User{Email: "t-" + suffix + "@example.com", PasswordHash: "x", Name: "T", UserType: "teacher"}
	require.NoError(t, accounts.CreateUser(ctx, &tu))
	teacher = account.Teacher{UserID: tu.ID, Email: tu.Email, Name: "T", Department: "Physics"}
	require.NoError(t, accounts.CreateTeacher(ctx, &teacher))

	su := account.User{Email: "s-" + suffix + "@example.com", PasswordHash: "x", Name: "S", UserType: "student"}
	require.NoError(t, accounts.CreateUser(ctx, &su))
	st := account.Student{UserID: &su.ID, TeacherID: &teacher.ID, Email: su.Email, Name: "S"}
	require.NoError(t, accounts.CreateStudent(ctx, &st))
	return teacher, su.ID
}

func TestPostgresOncePerDayConstraint(t *testing.T) {
	db := openTestDB(t)
	accounts := account.NewRepository(db.Client)
	repo := NewRepository(db.Client)
	ctx := context.Background()

	teacher, studentUserID := seedRoster(t, accounts)
	registry := NewRegistry(repo, accounts, 2*time.Minute, zap.NewNop(), nil)
	ledger := NewLedger(registry, repo, repo, accounts, LedgerOptions{}, zap.NewNop(), nil)

	teacherUserID := teacher.UserID

	c, err := registry.Generate(ctx, teacherUserID, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Submit(ctx, studentUserID, c.Code)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrDuplicate)
		}
	}
	assert.Equal(t, 1, succeeded)

	history, err := ledger.History(ctx, studentUserID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, c.Code, history[0].Code)
	assert.Equal(t, time.Now().UTC().Format(dayLayout), history[0].AttendedOn)

	report, err := ledger.Stats(ctx, teacherUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalStudents)
	require.NotEmpty(t, report.Stats)
}

func TestPostgresCodeCollisionAndPurge(t *testing.T) {
	db := openTestDB(t)
	accounts := account.NewRepository(db.Client)
	repo := NewRepository(db.Client)
	ctx := context.Background()
	teacher, _ := seedRoster(t, accounts)

	value := "T" + uuid.NewString()[:5]
	old := time.Now().UTC().Add(-2 * time.Hour)
	first := Code{Code: value, TeacherID: teacher.ID, ClassLabel: "Physics", CreatedAt: old, ExpiresAt: old.Add(2 * time.Minute)}
	require.NoError(t, repo.InsertCode(ctx, &first))

	dup := first
	dup.ID = ""
	assert.ErrorIs(t, repo.InsertCode(ctx, &dup), errCodeTaken)

	n, err := repo.PurgeCodes(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	got, err := repo.CodeByValue(ctx, value)
	require.NoError(t, err)
	assert.Nil(t, got)
}
