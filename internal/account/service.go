package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"presentsmart/internal/apperr"
	"presentsmart/internal/auth"
	"presentsmart/internal/notify"
)

// DefaultDepartment is assigned to teachers who sign up without one.
const DefaultDepartment = "General"

// Repository is the account persistence the service needs. Lookups return
// (nil, nil) when nothing matches.
type Repository interface {
	InTx(ctx context.Context, fn func(Repository) error) error

	CreateUser(ctx context.Context, u *User) error
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)

	CreateTeacher(ctx context.Context, t *Teacher) error
	TeacherByUserID(ctx context.Context, userID string) (*Teacher, error)
	TeacherByID(ctx context.Context, id string) (*Teacher, error)

	CreateStudent(ctx context.Context, s *Student) error
	UpdateStudent(ctx context.Context, s *Student) error
	StudentByEmail(ctx context.Context, email string) (*Student, error)
	StudentByUserID(ctx context.Context, userID string) (*Student, error)
	StudentsByTeacher(ctx context.Context, teacherID string) ([]Student, error)
	CountStudents(ctx context.Context, teacherID string) (int, error)

	CreateInvite(ctx context.Context, inv *Invitation) error
	InviteByToken(ctx context.Context, token string) (*Invitation, error)
	MarkInviteUsed(ctx context.Context, id string) error
}

// Notifier sends account emails.
type Notifier interface {
	Welcome(ctx context.Context, to, name string) error
	Invite(ctx context.Context, inv notify.Invite) error
}

// SignupInput is the signup request.
type SignupInput struct {
	Email       string
	Password    string
	Name        string
	UserType    string
	Department  string
	InviteToken string
}

// InviteInput is a teacher's invitation request.
type InviteInput struct {
	Email      string
	Name       string
	Class      string
	Department string
}

// Session is an authenticated user with its token.
type Session struct {
	Token string
	User  User
}

// StudentProfile is a student together with the owning teacher, if any.
type StudentProfile struct {
	Student
	Teacher *Teacher `json:"teacher"`
}

// Service implements signup, signin and roster management.
type Service struct {
	repo      Repository
	signer    *auth.Signer
	notifier  Notifier
	log       *zap.Logger
	inviteTTL time.Duration
	now       func() time.Time
}

// NewService wires the account service.
func NewService(repo Repository, signer *auth.Signer, notifier Notifier, log *zap.Logger, inviteTTL time.Duration) *Service {
	return &Service{
		repo:      repo,
		signer:    signer,
		notifier:  notifier,
		log:       log,
		inviteTTL: inviteTTL,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a user and its profile and signs it in. A student whose
// email was pre-provisioned by an invitation is linked to the existing
// roster entry.
func (s *Service) Signup(ctx context.Context, in SignupInput) (Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Password == "" || in.Name == "" || in.UserType == "" {
		return Session{}, ErrMissingFields
	}
	if !validUserType(in.UserType) {
		return Session{}, ErrInvalidUserType
	}

	existing, err := s.repo.UserByEmail(ctx, in.Email)
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return Session{}, ErrUserExists
	}

	var invite *Invitation
	if in.InviteToken != "" && in.UserType == auth.RoleStudent {
		invite, err = s.repo.InviteByToken(ctx, in.InviteToken)
		if err != nil {
			return Session{}, fmt.Errorf("lookup invite: %w", err)
		}
		if invite == nil || !invite.Usable(in.Email, s.now()) {
			return Session{}, ErrInvalidInvite
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		Email:         in.Email,
		PasswordHash:  hash,
		Name:          in.Name,
		UserType:      in.UserType,
		EmailVerified: invite != nil,
	}
	if err := ValidateUser(user); err != nil {
		return Session{}, apperr.Wrap(apperr.Validation, "invalid signup details", err)
	}

	err = s.repo.InTx(ctx, func(r Repository) error {
		if err := r.CreateUser(ctx, &user); err != nil {
			return err
		}
		if user.UserType == auth.RoleTeacher {
			return createTeacher(ctx, r, user, in.Department)
		}
		if err := attachStudent(ctx, r, user, invite); err != nil {
			return err
		}
		if invite != nil {
			return r.MarkInviteUsed(ctx, invite.ID)
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}

	if err := s.notifier.Welcome(ctx, user.Email, user.Name); err != nil {
		s.log.Warn("welcome email failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	token, err := s.signer.Issue(auth.Payload{UserID: user.ID, Email: user.Email, UserType: user.UserType})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	s.log.Info("user signed up", zap.String("user_id", user.ID), zap.String("user_type", user.UserType))
	return Session{Token: token, User: user}, nil
}

func createTeacher(ctx context.Context, r Repository, user User, department string) error {
	department = strings.TrimSpace(department)
	if department == "" {
		department = DefaultDepartment
	}
	t := Teacher{UserID: user.ID, Email: user.Email, Name: user.Name, Department: department}
	if err := ValidateTeacher(t); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid teacher profile", err)
	}
	return r.CreateTeacher(ctx, &t)
}

func attachStudent(ctx context.Context, r Repository, user User, invite *Invitation) error {
	st, err := r.StudentByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("lookup student: %w", err)
	}
	if st == nil {
		st = &Student{Email: user.Email, Name: user.Name}
		st.UserID = &user.ID
		if invite != nil {
			st.TeacherID = &invite.CreatedBy
		}
		if err := ValidateStudent(*st); err != nil {
			return apperr.Wrap(apperr.Validation, "invalid student profile", err)
		}
		return r.CreateStudent(ctx, st)
	}
	if st.UserID != nil {
		return ErrUserExists
	}
	st.UserID = &user.ID
	if st.TeacherID == nil && invite != nil {
		st.TeacherID = &invite.CreatedBy
	}
	return r.UpdateStudent(ctx, st)
}

// Signin checks credentials and issues a session token.
func (s *Service) Signin(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrMissingCredential
	}
	user, err := s.repo.UserByEmail(ctx, email)
	if err != nil {
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return Session{}, ErrBadCredentials
	}
	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return Session{}, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return Session{}, ErrBadCredentials
	}
	token, err := s.signer.Issue(auth.Payload{UserID: user.ID, Email: user.Email, UserType: user.UserType})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, User: *user}, nil
}

// Me returns the caller's user record.
func (s *Service) Me(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// TeacherProfile returns the caller's teacher profile.
func (s *Service) TeacherProfile(ctx context.Context, userID string) (*Teacher, error) {
	t, err := s.repo.TeacherByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup teacher: %w", err)
	}
	if t == nil {
		return nil, ErrNoTeacher
	}
	return t, nil
}

// TeacherStudents lists the caller's roster.
func (s *Service) TeacherStudents(ctx context.Context, userID string) ([]Student, error) {
	t, err := s.TeacherProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	students, err := s.repo.StudentsByTeacher(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// StudentProfile returns the caller's student profile with its teacher.
func (s *Service) StudentProfile(ctx context.Context, userID string) (*StudentProfile, error) {
	st, err := s.repo.StudentByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup student: %w", err)
	}
	if st == nil {
		return nil, ErrNoStudent
	}
	profile := &StudentProfile{Student: *st}
	if st.TeacherID != nil {
		profile.Teacher, err = s.repo.TeacherByID(ctx, *st.TeacherID)
		if err != nil {
			return nil, fmt.Errorf("lookup teacher: %w", err)
		}
	}
	return profile, nil
}

// InviteStudent pre-provisions a student on the caller's roster and sends
// an invitation. A student already owned by another teacher keeps that
// owner; the invitation is still issued.
func (s *Service) InviteStudent(ctx context.Context, userID string, in InviteInput) (*Invitation, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return nil, ErrMissingInvitee
	}
	teacher, err := s.TeacherProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	department := firstNonEmpty(in.Department, teacher.Department)
	class := firstNonEmpty(in.Class, teacher.Department)

	now := s.now()
	inv := Invitation{
		Email:     email,
		Token:     auth.NewInviteToken(),
		ExpiresAt: now.Add(s.inviteTTL),
		CreatedBy: teacher.ID,
	}
	if err := ValidateInvitation(inv); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "invalid invitation", err)
	}

	err = s.repo.InTx(ctx, func(r Repository) error {
		st, err := r.StudentByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("lookup student: %w", err)
		}
		switch {
		case st == nil:
			st = &Student{Email: email, Name: name, Department: department, Class: class, TeacherID: &teacher.ID}
			if err := ValidateStudent(*st); err != nil {
				return apperr.Wrap(apperr.Validation, "invalid student", err)
			}
			if err := r.CreateStudent(ctx, st); err != nil {
				return err
			}
		case st.TeacherID == nil:
			st.TeacherID = &teacher.ID
			st.Department = department
			st.Class = class
			if err := r.UpdateStudent(ctx, st); err != nil {
				return err
			}
		}
		return r.CreateInvite(ctx, &inv)
	})
	if err != nil {
		return nil, err
	}

	err = s.notifier.Invite(ctx, notify.Invite{
		StudentEmail: email,
		StudentName:  name,
		TeacherName:  teacher.Name,
		Token:        inv.Token,
		ValidDays:    int(s.inviteTTL / (24 * time.Hour)),
	})
	if err != nil {
		s.log.Warn("invite email failed", zap.String("teacher_id", teacher.ID), zap.Error(err))
	}
	s.log.Info("student invited", zap.String("teacher_id", teacher.ID), zap.String("invite_id", inv.ID))
	return &inv, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
