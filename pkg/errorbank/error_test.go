package errorbank_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/orderview/orderview/pkg/errorbank"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err    *errorbank.AppError
		status int
		code   codes.Code
	}{
		{errorbank.BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{errorbank.Conflict("dup"), http.StatusConflict, codes.AlreadyExists},
		{errorbank.NotFound("missing"), http.StatusNotFound, codes.NotFound},
		{errorbank.Unprocessable("nope"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{errorbank.Internal("boom"), http.StatusInternalServerError, codes.Internal},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode())
		assert.Equal(t, tc.code, tc.err.GRPCCode())
	}
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("root cause")
	err := errorbank.Internal("wrapper", errorbank.WithCause(cause))

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "root cause")
}

func TestWithDetail(t *testing.T) {
	err := errorbank.BadRequest("bad",
		errorbank.WithDetail("field", "limit"),
		errorbank.WithDetails(map[string]any{"value": -1}),
	)

	details := err.Details()
	require.NotNil(t, details)
	assert.Equal(t, "limit", details["field"])
	assert.Equal(t, -1, details["value"])
}

func TestFrom(t *testing.T) {
	appErr := errorbank.NotFound("missing")
	assert.Same(t, appErr, errorbank.From(appErr))

	wrapped := errorbank.From(errors.New("plain"))
	assert.Equal(t, errorbank.KindInternal, wrapped.Kind())

	assert.Nil(t, errorbank.From(nil))
}

func TestEmptyMessageFallsBackToKind(t *testing.T) {
	err := errorbank.New(errorbank.KindConflict, "")
	assert.Equal(t, string(errorbank.KindConflict), err.Message())
}
