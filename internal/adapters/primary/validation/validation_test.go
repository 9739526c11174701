package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lorrc/service-desk-pki/internal/core/errors"
)

type closeRequest struct {
	Reason string `json:"reason"`
}

func (r *closeRequest) Validate() error {
	v := NewValidator()
	v.Required("reason", r.Reason).MaxLength("reason", r.Reason, 10)
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"fixed"}`))
		got, err := DecodeAndValidate[closeRequest](req)
		require.NoError(t, err)
		assert.Equal(t, "fixed", got.Reason)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		_, err := DecodeAndValidate[closeRequest](req)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	})

	t.Run("rules run after decoding", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":""}`))
		_, err := DecodeAndValidate[closeRequest](req)

		var ve *apperrors.ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Errors, "reason")
	})
}

func TestValidatorChains(t *testing.T) {
	v := NewValidator()
	v.Required("name", " ").
		Email("email", "not-an-email").
		UUID("id", "123").
		Range("score", 120, 0, 100).
		OneOf("granularity", "hour", []string{"day", "week"})

	require.True(t, v.HasErrors())
	for _, field := range []string{"name", "email", "id", "score", "granularity"} {
		assert.Contains(t, v.Errors().Errors, field)
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=20", nil)
	p := ParsePagination(req, 100)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, 20, p.Offset)

	req = httptest.NewRequest(http.MethodGet, "/?limit=-1&offset=x", nil)
	assert.Equal(t, DefaultPagination(), ParsePagination(req, 100))
}

func TestParseTimeRange(t *testing.T) {
	t.Run("date only upper bound covers the day", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?from=2024-06-01&to=2024-06-30", nil)
		from, to, err := ParseTimeRange(req, "from", "to")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *from)
		assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), *to)
	})

	t.Run("timestamps are kept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?from=2024-06-01T10:00:00%2B02:00", nil)
		from, to, err := ParseTimeRange(req, "from", "to")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), *from)
		assert.Nil(t, to)
	})

	t.Run("invalid and inverted ranges", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?from=yesterday", nil)
		_, _, err := ParseTimeRange(req, "from", "to")
		require.Error(t, err)

		req = httptest.NewRequest(http.MethodGet, "/?from=2024-07-01&to=2024-06-01", nil)
		_, _, err = ParseTimeRange(req, "from", "to")
		var ve *apperrors.ValidationErrors
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Errors, "from")
	})
}
