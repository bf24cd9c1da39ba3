package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/examgate/examgate/internal/auth/middleware"
	"github.com/examgate/examgate/internal/exam"
)

// POST /exams/{examID}/questions/{questionID}/mcq
func SaveMcqAnswerHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		questionID := chi.URLParam(r, "questionID")
		var req struct {
			AnswerOptions string `json:"answer_options"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		accountID := authmw.SubjectFromContext(r.Context())
		sub, err := svc.SaveMcqAnswer(r.Context(), examID, accountID, questionID, req.AnswerOptions)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(sub)
	}
}

// POST /exams/{examID}/written
func SaveWrittenAnswersHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		var answers []exam.WrittenAnswer
		if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		accountID := authmw.SubjectFromContext(r.Context())
		subs, err := svc.SaveWrittenAnswers(r.Context(), examID, accountID, answers)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(subs)
	}
}

// POST /exams/{examID}/questions/{questionID}/problem
func SaveProblemAnswerHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		questionID := chi.URLParam(r, "questionID")
		var req struct {
			Language string `json:"language"`
			Code     string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		accountID := authmw.SubjectFromContext(r.Context())
		sub, err := svc.SaveProblemAnswer(r.Context(), examID, accountID, questionID, req.Language, req.Code)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(sub)
	}
}
