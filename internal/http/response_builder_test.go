package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusCreated).Header("X-Test", "1").Data(map[string]int{"n": 2}).Write(rec)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":2}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	NewJSONResponse().Data(make(chan int)).Write(rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		body string
	}{
		{fmt.Errorf("%w: bad amount", services.ErrInvalidInput), http.StatusBadRequest, "bad amount"},
		{fmt.Errorf("load account: %w", ledger.ErrNotFound), http.StatusNotFound, "not found"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)
		assert.Equal(t, tt.want, rec.Code)
		assert.Contains(t, rec.Body.String(), tt.body)
		assert.NotContains(t, rec.Body.String(), "disk on fire")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	decode := func(contentType, body string) (payload, error) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		var p payload
		err := decodeJSON(httptest.NewRecorder(), req, &p)
		return p, err
	}

	p, err := decode("application/json; charset=utf-8", `{"name":"ok"}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", p.Name)

	_, err = decode("text/plain", `{"name":"ok"}`)
	assert.ErrorContains(t, err, "content type")

	_, err = decode("", ``)
	assert.ErrorContains(t, err, "empty")

	_, err = decode("", `{"name":"a"}{"name":"b"}`)
	assert.ErrorContains(t, err, "single JSON object")

	_, err = decode("", `{"name":"a","extra":1}`)
	assert.ErrorContains(t, err, "malformed")

	_, err = decode("", `{"name":"`+strings.Repeat("x", maxBodyBytes)+`"}`)
	assert.ErrorContains(t, err, "exceeds")
}

func TestParseMonthsBounds(t *testing.T) {
	for q, ok := range map[string]bool{"": true, "1": true, "60": true, "0": false, "61": false, "x": false} {
		_, err := parseMonths(httptest.NewRequest(http.MethodGet, "/?months="+q, nil))
		assert.Equal(t, ok, err == nil, "months=%q", q)
	}
}
