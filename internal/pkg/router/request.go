package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
)

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	*http.Request
}

// GetParam reads a path parameter stored by httprouter.
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// GetQuery returns the trimmed query value for key.
func (r *Request) GetQuery(key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// HasQuery reports whether key is present and non-blank.
func (r *Request) HasQuery(key string) bool {
	return r.GetQuery(key) != ""
}

// GetQueryIntPtr parses key as an int. A missing key yields nil so callers
// can tell "absent" from zero.
func (r *Request) GetQueryIntPtr(key string) (*int, error) {
	queryValue := r.GetQuery(key)
	if queryValue == "" {
		return nil, nil
	}

	value, err := strconv.Atoi(queryValue)
	if err != nil {
		return nil, goerror.NewInvalidInput(nil, key, key+" must be an integer")
	}

	return &value, nil
}

// GetQueryTime parses key with the first layout that matches.
// A missing key yields the zero time.
func (r *Request) GetQueryTime(key string, layouts ...string) (time.Time, error) {
	queryValue := r.GetQuery(key)
	if queryValue == "" {
		return time.Time{}, nil
	}

	for _, layout := range layouts {
		if value, err := time.ParseInLocation(layout, queryValue, time.UTC); err == nil {
			return value.UTC(), nil
		}
	}

	return time.Time{}, goerror.NewInvalidInput(nil, key, key+" has an unsupported time format")
}

// ClientIP returns the caller address resolved by the IP middleware.
func (r *Request) ClientIP() string {
	return r.RemoteAddr
}
