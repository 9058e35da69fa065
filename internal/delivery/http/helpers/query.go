package helpers

import (
	"net/http"
	"strconv"
)

// QueryBool reads a boolean query parameter. Missing or unparseable values
// fall back to def.
func QueryBool(r *http.Request, key string, def bool) bool {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}
