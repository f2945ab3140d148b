package devserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

type vocabJSON struct {
	ID           int64     `json:"id"`
	TermEN       string    `json:"termEn"`
	TermPL       string    `json:"termPl"`
	ExampleEN    *string   `json:"exampleEn"`
	ExamplePL    *string   `json:"examplePl"`
	ImageMediaID *int64    `json:"imageMediaId"`
	AudioMediaID *int64    `json:"audioMediaId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type vocabUpsertRequest struct {
	TermEN       string  `json:"termEn"`
	TermPL       string  `json:"termPl"`
	ExampleEN    *string `json:"exampleEn"`
	ExamplePL    *string `json:"examplePl"`
	ImageMediaID *int64  `json:"imageMediaId"`
	AudioMediaID *int64  `json:"audioMediaId"`
}

func vocabToJSON(v *vocabEntry) vocabJSON {
	return vocabJSON{
		ID: v.id, TermEN: v.termEN, TermPL: v.termPL,
		ExampleEN: v.exampleEN, ExamplePL: v.examplePL,
		ImageMediaID: v.imageMediaID, AudioMediaID: v.audioMediaID,
		CreatedAt: v.createdAt, UpdatedAt: v.updatedAt,
	}
}

func (s *Server) handleCreateVocabulary(w http.ResponseWriter, r *http.Request) {
	var req vocabUpsertRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.TermEN) == "" || strings.TrimSpace(req.TermPL) == "" {
		httpError(w, http.StatusBadRequest, "termEn and termPl are required")
		return
	}

	s.state.mu.Lock()
	v := &vocabEntry{
		id:           s.state.id(),
		ownerID:      requestUser(r),
		termEN:       req.TermEN,
		termPL:       req.TermPL,
		exampleEN:    req.ExampleEN,
		examplePL:    req.ExamplePL,
		imageMediaID: req.ImageMediaID,
		audioMediaID: req.AudioMediaID,
		createdAt:    s.now(),
		updatedAt:    s.now(),
	}
	s.state.vocabulary[v.id] = v
	s.state.mu.Unlock()

	writeJSON(w, http.StatusCreated, vocabToJSON(v))
}

func (s *Server) handleSearchVocabulary(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	page, size := pageParams(r)

	s.state.mu.Lock()
	var matches []vocabJSON
	for _, v := range s.state.vocabulary {
		if v.ownerID != userID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(v.termEN), q) && !strings.Contains(strings.ToLower(v.termPL), q) {
			continue
		}
		matches = append(matches, vocabToJSON(v))
	}
	s.state.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })
	writeJSON(w, http.StatusOK, pageOf(matches, page, size))
}

func (s *Server) handleGetVocabulary(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	v, ok := s.ownedVocabularyLocked(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, vocabToJSON(v))
}

func (s *Server) handleUpdateVocabulary(w http.ResponseWriter, r *http.Request) {
	var req vocabUpsertRequest
	if !readJSON(w, r, &req) {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	v, ok := s.ownedVocabularyLocked(w, r)
	if !ok {
		return
	}
	v.termEN = req.TermEN
	v.termPL = req.TermPL
	v.exampleEN = req.ExampleEN
	v.examplePL = req.ExamplePL
	v.imageMediaID = req.ImageMediaID
	v.audioMediaID = req.AudioMediaID
	v.updatedAt = s.now()
	writeJSON(w, http.StatusOK, vocabToJSON(v))
}

func (s *Server) handleDeleteVocabulary(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	v, ok := s.ownedVocabularyLocked(w, r)
	if !ok {
		return
	}
	delete(s.state.vocabulary, v.id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ownedVocabularyLocked(w http.ResponseWriter, r *http.Request) (*vocabEntry, bool) {
	v := s.state.vocabulary[pathID(r, "id")]
	if v == nil || v.ownerID != requestUser(r) {
		httpError(w, http.StatusNotFound, "vocabulary entry not found")
		return nil, false
	}
	return v, true
}

func pageParams(r *http.Request) (page, size int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	size, _ = strconv.Atoi(r.URL.Query().Get("size"))
	if size == 0 {
		size = 20
	}
	return page, size
}
