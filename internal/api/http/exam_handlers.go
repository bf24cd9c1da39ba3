package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authmw "github.com/examgate/examgate/internal/auth/middleware"
	"github.com/examgate/examgate/internal/exam"
	"github.com/examgate/examgate/internal/rbac"
)

type uploadExamReq struct {
	Exam      exam.Examination `json:"exam"`
	Questions []exam.Question  `json:"questions"`
}

// POST /exams — import or replace an unpublished exam with its questions.
func UploadExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploadExamReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.Exam.ID == "" {
			http.Error(w, "exam id required", http.StatusBadRequest)
			return
		}
		if err := store.PutExam(r.Context(), req.Exam, req.Questions); err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(req.Exam)
	}
}

// POST /exams/{examID}/publish
func PublishExamHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ex, err := svc.PublishExam(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(ex)
	}
}

type examView struct {
	exam.Examination
	Status    exam.Status     `json:"status"`
	Questions []exam.Question `json:"questions"`
}

// GET /exams/{examID} — exam with clock-derived status. Answer keys and
// expected test-case outputs are stripped unless the caller is a reviewer
// or admin.
func GetExamHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		ex, err := store.GetExam(r.Context(), examID)
		if err != nil {
			writeError(w, err)
			return
		}
		qs, err := store.QuestionsForExam(r.Context(), examID)
		if err != nil {
			writeError(w, err)
			return
		}
		role := rbac.RoleFromContext(r.Context())
		if role != "reviewer" && role != "admin" {
			for i := range qs {
				if qs[i].Mcq != nil {
					o := *qs[i].Mcq
					o.AnswerOptions = ""
					qs[i].Mcq = &o
				}
				for j := range qs[i].TestCases {
					qs[i].TestCases[j].Output = ""
				}
			}
		}
		_ = json.NewEncoder(w).Encode(examView{
			Examination: ex,
			Status:      ex.StatusOf(time.Now()),
			Questions:   qs,
		})
	}
}

// GET /exams/{examID}/scoreboard — the caller's own row.
func GetMyScoreboardHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sb, err := svc.GetCandidateScoreboard(r.Context(),
			chi.URLParam(r, "examID"), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(sb)
	}
}
