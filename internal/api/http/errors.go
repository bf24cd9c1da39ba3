package http

import (
	"net/http"

	"github.com/examgate/examgate/internal/exam"
)

// writeError maps core error kinds to HTTP status codes in one place so
// handlers never invent their own mapping.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch exam.KindOf(err) {
	case exam.KindNotFound:
		code = http.StatusNotFound
	case exam.KindForbidden:
		code = http.StatusForbidden
	case exam.KindConflict:
		code = http.StatusConflict
	case exam.KindValidation:
		code = http.StatusBadRequest
	}
	http.Error(w, err.Error(), code)
}
