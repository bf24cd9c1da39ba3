package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/examgate/examgate/internal/exam"
)

// POST /exams/{examID}/candidates/{accountID}/written/{submissionID}/review
func ReviewWrittenHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.ReviewInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sub, err := svc.ReviewWritten(r.Context(),
			chi.URLParam(r, "examID"), chi.URLParam(r, "accountID"), chi.URLParam(r, "submissionID"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(sub)
	}
}

// POST /exams/{examID}/candidates/{accountID}/problems/{submissionID}/review
func ReviewProblemHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.ReviewInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sub, err := svc.ReviewProblem(r.Context(),
			chi.URLParam(r, "examID"), chi.URLParam(r, "accountID"), chi.URLParam(r, "submissionID"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(sub)
	}
}

// GET /written-submissions/{submissionID}/suggestion
// Returns an AI-drafted review for the reviewer to edit; nothing is saved.
func SuggestReviewHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sugg, err := svc.SuggestWrittenReview(r.Context(), chi.URLParam(r, "submissionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(sugg)
	}
}

// GET /exams/{examID}/candidates/{accountID}/scoreboard
// Candidates may only read their own row; the route for them passes "me".
func GetScoreboardHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sb, err := svc.GetCandidateScoreboard(r.Context(),
			chi.URLParam(r, "examID"), chi.URLParam(r, "accountID"))
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(sb)
	}
}
