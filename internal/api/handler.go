// Package api maps the HTTP surface onto the account and attendance
// services.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"presentsmart/internal/account"
	"presentsmart/internal/apperr"
	"presentsmart/internal/attendance"
	"presentsmart/internal/auth"
)

// Accounts is the account service as seen by handlers.
type Accounts interface {
	Signup(ctx context.Context, in account.SignupInput) (account.Session, error)
	Signin(ctx context.Context, email, password string) (account.Session, error)
	Me(ctx context.Context, userID string) (*account.User, error)
	TeacherProfile(ctx context.Context, userID string) (*account.Teacher, error)
	TeacherStudents(ctx context.Context, userID string) ([]account.Student, error)
	StudentProfile(ctx context.Context, userID string) (*account.StudentProfile, error)
	InviteStudent(ctx context.Context, userID string, in account.InviteInput) (*account.Invitation, error)
}

// Codes issues attendance codes.
type Codes interface {
	Generate(ctx context.Context, userID, classLabel string) (*attendance.Code, error)
	TTL() time.Duration
}

// Ledger records and reports attendance.
type Ledger interface {
	Submit(ctx context.Context, userID, code string) (*attendance.Record, error)
	History(ctx context.Context, userID string) ([]attendance.Record, error)
	Stats(ctx context.Context, userID string) (*attendance.Report, error)
}

// Checker is a dependency probed by the health endpoint.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// Handler holds the services behind the routes.
type Handler struct {
	accounts Accounts
	codes    Codes
	ledger   Ledger
	checks   map[string]Checker
	log      *zap.Logger
	now      func() time.Time
}

// NewHandler wires the handlers. checks maps a name reported by /health to
// its probe.
func NewHandler(accounts Accounts, codes Codes, ledger Ledger, checks map[string]Checker, log *zap.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		codes:    codes,
		ledger:   ledger,
		checks:   checks,
		log:      log,
		now:      time.Now,
	}
}

var errBadBody = apperr.New(apperr.Validation, "invalid request body")

// bind decodes an optional JSON body. An empty body leaves dst untouched.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

// fail writes err as {"error": msg}. Internal errors are logged and
// reported with fallback.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(fallback, zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperr.Message(err, fallback)})
}

func userID(c *gin.Context) string {
	claims, _ := auth.ClaimsFrom(c)
	return claims.UserID
}

// Health reports process liveness and dependency reachability.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok", "timestamp": h.now().UTC().Format(time.RFC3339)}
	status := http.StatusOK
	for name, check := range h.checks {
		ok := check.Healthy(ctx)
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// NotFound answers unmatched routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}
