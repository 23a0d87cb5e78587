package httpx

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// URLInt64 parses a chi URL parameter as int64.
func URLInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", ErrValidation, name)
	}
	return v, nil
}

// ActorID reads the acting user id injected by the fronting gateway. Zero
// when absent.
func ActorID(r *http.Request) int64 {
	v, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return v
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
func QueryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrValidation, name)
	}
	return &t, nil
}
