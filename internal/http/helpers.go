package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// UserHeader carries the caller's user ID; authentication happens upstream.
const UserHeader = "X-User-ID"

var timeNow = time.Now

// userID returns the sanitized caller ID set by requireUser.
func userID(r *http.Request) string {
	return sanitizeInput(r.Header.Get(UserHeader))
}

// parseMonth reads ?month=YYYY-MM, defaulting to the current month.
func parseMonth(r *http.Request) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.DateOf(timeNow()).FirstOfMonth(), nil
	}
	m, err := core.ParseMonth(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid month %q: want YYYY-MM", v)
	}
	return m, nil
}

// parseMonths reads ?months=N. Zero means the caller did not ask for a window.
func parseMonths(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("months"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 60 {
		return 0, fmt.Errorf("invalid months %q: want 1 to 60", v)
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
