package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/examgate/examgate/internal/exam"
)

// POST /exams/{examID}/candidates
// Accepts either a raw JSON array of invites or a multipart file= upload
// (CSV with an account_id,email header, or the same JSON array).
func InviteCandidatesHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invites, err := decodeInvites(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(invites) == 0 {
			_ = json.NewEncoder(w).Encode(map[string]any{"invited": 0})
			return
		}
		for _, in := range invites {
			if in.AccountID == "" {
				http.Error(w, "account_id required on every invite", http.StatusBadRequest)
				return
			}
		}
		added, err := store.InviteCandidates(r.Context(), chi.URLParam(r, "examID"), invites)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"invited": added})
	}
}

func decodeInvites(r *http.Request) ([]exam.Invite, error) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "multipart/form-data") {
		var invites []exam.Invite
		if err := json.NewDecoder(r.Body).Decode(&invites); err != nil {
			return nil, errors.New("expected JSON array or multipart file")
		}
		return invites, nil
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("file required")
	}
	defer f.Close()
	// sniff CSV vs JSON by first non-space byte
	buf := make([]byte, 1)
	if _, err := f.Read(buf); err != nil {
		return nil, errors.New("empty file")
	}
	if _, err := f.(io.Seeker).Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if buf[0] == '[' || buf[0] == '{' {
		var invites []exam.Invite
		if err := json.NewDecoder(f).Decode(&invites); err != nil {
			return nil, errors.New("bad json")
		}
		return invites, nil
	}
	return parseInviteCSV(f)
}

func parseInviteCSV(r io.Reader) ([]exam.Invite, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["account_id"]; !ok {
		return nil, errors.New("missing column: account_id")
	}
	var invites []exam.Invite
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		in := exam.Invite{AccountID: strings.TrimSpace(rec[idx["account_id"]])}
		if i, ok := idx["email"]; ok && i < len(rec) {
			in.Email = strings.TrimSpace(rec[i])
		}
		invites = append(invites, in)
	}
	return invites, nil
}
