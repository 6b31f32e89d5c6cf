package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"presentsmart/internal/account"
)

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	UserType    string `json:"userType"`
	Department  string `json:"department"`
	InviteToken string `json:"inviteToken"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	UserType      string `json:"userType"`
	EmailVerified *bool  `json:"emailVerified,omitempty"`
}

func viewOf(u account.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, UserType: u.UserType}
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "failed to create user account")
		return
	}
	sess, err := h.accounts.Signup(c.Request.Context(), account.SignupInput(req))
	if err != nil {
		h.fail(c, err, "failed to create user account")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"token":   sess.Token,
		"user":    viewOf(sess.User),
	})
}

// Signin handles POST /auth/signin.
func (h *Handler) Signin(c *gin.Context) {
	var req signinRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "failed to sign in")
		return
	}
	sess, err := h.accounts.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err, "failed to sign in")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Signed in successfully",
		"token":   sess.Token,
		"user":    viewOf(sess.User),
	})
}

// Signout handles POST /auth/signout. Tokens are stateless; the client
// discards its copy.
func (h *Handler) Signout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Signed out successfully"})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	u, err := h.accounts.Me(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err, "failed to get user")
		return
	}
	view := viewOf(*u)
	view.EmailVerified = &u.EmailVerified
	c.JSON(http.StatusOK, gin.H{"user": view})
}
