package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMatchesByCode(t *testing.T) {
	cause := errors.New("no rows")
	err := fmt.Errorf("latest: %w", NotFoundError("pair SPY:QQQ").WithError(cause))

	assert.True(t, errors.Is(err, NotFoundError("")))
	assert.False(t, errors.Is(err, BadRequestError("")))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "pair SPY:QQQ: no rows", errors.Unwrap(err).Error())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(UnprocessableError("short")))
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(fmt.Errorf("x: %w", UnavailableError("down"))))
	assert.Equal(t, http.StatusBadRequest, StatusOf(BadRequestErrorf("at most %d", 3)))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(&AppError{Code: CodeInternal}))
}
