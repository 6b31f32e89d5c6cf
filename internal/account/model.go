// Package account manages users and their teacher or student profiles,
// including the invitation flow that pre-provisions students.
package account

import (
	"time"

	"github.com/go-playground/validator/v10"

	"presentsmart/internal/auth"
)

var validate = validator.New()

// User is a login identity.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email" validate:"required,email"`
	PasswordHash  string    `json:"-" validate:"required"`
	Name          string    `json:"name" validate:"required"`
	UserType      string    `json:"userType" validate:"oneof=teacher student"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Teacher is the profile of a teacher account.
type Teacher struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId" validate:"required"`
	Email      string    `json:"email" validate:"required,email"`
	Name       string    `json:"name" validate:"required"`
	Department string    `json:"department" validate:"required"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Student is a roster entry. It can exist before its account does, in
// which case UserID is nil until the student signs up.
type Student struct {
	ID         string    `json:"id"`
	UserID     *string   `json:"userId"`
	TeacherID  *string   `json:"teacherId"`
	Email      string    `json:"email" validate:"required,email"`
	Name       string    `json:"name" validate:"required"`
	Department string    `json:"department"`
	Class      string    `json:"class"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Invitation pre-authorizes a student to register under a teacher.
type Invitation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email" validate:"required,email"`
	Token     string    `json:"-" validate:"required"`
	ExpiresAt time.Time `json:"expiresAt" validate:"required"`
	Used      bool      `json:"used"`
	CreatedBy string    `json:"createdBy" validate:"required"`
	CreatedAt time.Time `json:"createdAt"`
}

// Usable reports whether the invitation can still be redeemed by email at now.
func (i Invitation) Usable(email string, now time.Time) bool {
	return !i.Used && now.Before(i.ExpiresAt) && i.Email == email
}

// ValidateUser checks a user before it is stored.
func ValidateUser(u User) error { return validate.Struct(u) }

// ValidateTeacher checks a teacher profile before it is stored.
func ValidateTeacher(t Teacher) error { return validate.Struct(t) }

// ValidateStudent checks a student before it is stored.
func ValidateStudent(s Student) error { return validate.Struct(s) }

// ValidateInvitation checks an invitation before it is stored.
func ValidateInvitation(i Invitation) error { return validate.Struct(i) }

func validUserType(t string) bool {
	return t == auth.RoleTeacher || t == auth.RoleStudent
}
