package httputil

import (
	"encoding/json"
	"net/http"
)

// DecodeJSONLenient decodes a JSON request body into the target type without
// writing a response. A missing, oversized or malformed body yields the zero
// value of T together with the decode error, so callers can fall back to
// defaults instead of rejecting the request.
//
// Usage:
//
//	req, err := httputil.DecodeJSONLenient[models.CheckRequest](r)
//	if err != nil {
//	    // req is the zero value; continue with defaults
//	}
func DecodeJSONLenient[T any](r *http.Request) (T, error) {
	var req T
	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var zero T
		return zero, err
	}
	return req, nil
}
