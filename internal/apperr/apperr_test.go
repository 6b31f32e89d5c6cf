package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(Validation, "bad"), http.StatusBadRequest},
		{New(Conflict, "dup"), http.StatusBadRequest},
		{New(NotFound, "missing"), http.StatusNotFound},
		{New(Unauthorized, "who"), http.StatusUnauthorized},
		{New(Forbidden, "no"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}

func TestWrappedSentinelKeepsIdentity(t *testing.T) {
	sentinel := New(NotFound, "teacher profile not found")
	err := fmt.Errorf("generate: %w", sentinel)

	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, NotFound, KindOf(err))
	assert.Equal(t, "teacher profile not found", Message(err, "fallback"))
}

func TestMessageHidesInternalDetail(t *testing.T) {
	err := Wrap(Internal, "db exploded", errors.New("conn refused"))
	assert.Equal(t, "failed", Message(err, "failed"))
	assert.Equal(t, "failed", Message(errors.New("raw"), "failed"))
	assert.Contains(t, err.Error(), "conn refused")
}
