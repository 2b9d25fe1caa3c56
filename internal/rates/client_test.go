package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetchInvertsQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"base":"PHP","rates":{"PHP":1,"USD":0.02,"EUR":0.016,"bad":5,"JPY":0}}`))
	}))
	defer srv.Close()

	m, err := NewClient(srv.URL, "php", nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PHP", m.Base)
	assert.Len(t, m.Rates, 2)
	assert.Equal(t, "50", m.Rates["USD"].String())
	assert.Equal(t, "62.5", m.Rates["EUR"].String())
	assert.False(t, m.UpdatedAt.IsZero())
}

func TestClientFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `{}`},
		{"malformed json", http.StatusOK, `{"rates":`},
		{"wrong base", http.StatusOK, `{"base":"USD","rates":{"PHP":56}}`},
		{"no rates", http.StatusOK, `{"base":"PHP","rates":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "PHP", nil).Fetch(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestDefaultURL(t *testing.T) {
	assert.Equal(t, "https://api.exchangerate-api.com/v4/latest/PHP", DefaultURL("php"))
}
