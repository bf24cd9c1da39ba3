package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/examgate/examgate/internal/auth/middleware"
	"github.com/examgate/examgate/internal/exam"
)

// POST /exams/{examID}/session
func StartSessionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := strings.TrimSpace(chi.URLParam(r, "examID"))
		if examID == "" {
			http.Error(w, "examID required", http.StatusBadRequest)
			return
		}
		accountID := authmw.SubjectFromContext(r.Context())
		state, err := svc.StartSession(r.Context(), examID, accountID)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(state)
	}
}

// POST /exams/{examID}/session/cheating
// The exam client reports proctoring violations here.
func ReportCheatingHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := strings.TrimSpace(chi.URLParam(r, "examID"))
		accountID := authmw.SubjectFromContext(r.Context())
		cand, err := svc.MarkCheated(r.Context(), examID, accountID)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(cand)
	}
}

// POST /exams/{examID}/session/submit
func SubmitSessionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := strings.TrimSpace(chi.URLParam(r, "examID"))
		if examID == "" {
			http.Error(w, "examID required", http.StatusBadRequest)
			return
		}
		accountID := authmw.SubjectFromContext(r.Context())
		cand, err := svc.FinalizeSession(r.Context(), examID, accountID)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(cand)
	}
}
