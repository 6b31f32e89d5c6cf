package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type generateRequest struct {
	Class string `json:"class"`
}

type submitRequest struct {
	Code string `json:"code"`
}

// GenerateCode handles POST /attendance/generate-code.
func (h *Handler) GenerateCode(c *gin.Context) {
	var req generateRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "failed to generate attendance code")
		return
	}
	code, err := h.codes.Generate(c.Request.Context(), userID(c), req.Class)
	if err != nil {
		h.fail(c, err, "failed to generate attendance code")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":      code.Code,
		"class":     code.ClassLabel,
		"expiresAt": code.ExpiresAt,
		"expiresIn": int(h.codes.TTL().Seconds()),
	})
}

// Submit handles POST /attendance/submit.
func (h *Handler) Submit(c *gin.Context) {
	var req submitRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err, "failed to submit attendance")
		return
	}
	rec, err := h.ledger.Submit(c.Request.Context(), userID(c), req.Code)
	if err != nil {
		h.fail(c, err, "failed to submit attendance")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Attendance marked successfully",
		"record":  rec,
	})
}

// History handles GET /attendance/history.
func (h *Handler) History(c *gin.Context) {
	records, err := h.ledger.History(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err, "failed to get attendance history")
		return
	}
	c.JSON(http.StatusOK, records)
}

// Stats handles GET /attendance/stats.
func (h *Handler) Stats(c *gin.Context) {
	report, err := h.ledger.Stats(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err, "failed to get attendance statistics")
		return
	}
	c.JSON(http.StatusOK, report)
}
