// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// ErrorMapping pairs a sentinel error with the problem response it produces.
type ErrorMapping struct {
	Err    error
	Status int
	Title  string
}

// RespondError writes the first mapping matching err via errors.Is. Unmapped
// errors become a 500 without leaking the message.
func RespondError(w http.ResponseWriter, err error, mappings ...ErrorMapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			Problem(w, m.Status, m.Title, err.Error())
			return
		}
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
