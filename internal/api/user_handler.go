package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"presentsmart/internal/account"
)

type inviteRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Class      string `json:"class"`
	Department string `json:"department"`
}

// TeacherProfile handles GET /users/teacher/profile.
func (h *Handler) TeacherProfile(c *gin.Context) {
	t, err := h.accounts.TeacherProfile(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err, "failed to get teacher profile")
		return
	}
	c.JSON(http.StatusOK, t)
}

// TeacherStudents handles GET /users/teacher/students.
func (h *Handler) TeacherStudents(c *gin.Context) {
	students, err := h.accounts.TeacherStudents(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err, "failed to get students")
		return
	}
	c.JSON(http.StatusOK, students)
}

// InviteStudent handles POST /users/teacher/invite-student.
func (h *Handler) InviteStudent(c *gin.Context) {
	var req inviteRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "failed to send invitation")
		return
	}
	inv, err := h.accounts.InviteStudent(c.Request.Context(), userID(c), account.InviteInput(req))
	if err != nil {
		h.fail(c, err, "failed to send invitation")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Invitation sent successfully",
		"inviteToken": inv.Token,
	})
}

// StudentProfile handles GET /users/student/profile.
func (h *Handler) StudentProfile(c *gin.Context) {
	p, err := h.accounts.StudentProfile(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err, "failed to get student profile")
		return
	}
	c.JSON(http.StatusOK, p)
}
