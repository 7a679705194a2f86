package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]int{"rows": 3}).
		Write(w)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-Test"))
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"rows":3}`, w.Body.String())
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		builder *JSONResponseBuilder
		status  int
		code    string
	}{
		{BadRequestError("bad year"), http.StatusBadRequest, "bad_request"},
		{NotFoundError("missing"), http.StatusNotFound, "not_found"},
		{ServiceUnavailableError("loading"), http.StatusServiceUnavailable, "unavailable"},
		{BadGatewayError("source down"), http.StatusBadGateway, "source_failed"},
		{TooManyRequestsError(), http.StatusTooManyRequests, "rate_limited"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
			assert.Contains(t, w.Body.String(), `"error":"`+tt.code+`"`)
		})
	}
}
