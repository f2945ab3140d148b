package devserver

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxUploadBytes = 10 << 20

type mediaInfoJSON struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		httpError(w, http.StatusBadRequest, "unreadable file part")
		return
	}
	if len(data) > maxUploadBytes {
		httpError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	var mediaType string
	switch {
	case strings.HasPrefix(contentType, "image/"):
		mediaType = "IMAGE"
	case strings.HasPrefix(contentType, "audio/"):
		mediaType = "AUDIO"
	default:
		httpError(w, http.StatusUnsupportedMediaType, "only image and audio uploads are accepted")
		return
	}

	s.state.mu.Lock()
	m := &mediaObject{
		id:           s.state.id(),
		ownerID:      requestUser(r),
		mediaType:    mediaType,
		originalName: header.Filename,
		contentType:  contentType,
		data:         data,
		createdAt:    s.now(),
	}
	s.state.media[m.id] = m
	s.state.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          m.id,
		"type":        m.mediaType,
		"url":         fmt.Sprintf("/api/media/%d", m.id),
		"contentType": m.contentType,
		"size":        len(m.data),
		"createdAt":   m.createdAt,
	})
}

func (s *Server) handleMediaInfo(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	m, ok := s.ownedMediaLocked(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, mediaInfoJSON{
		ID: m.id, Type: m.mediaType, OriginalName: m.originalName,
		ContentType: m.contentType, Size: int64(len(m.data)), CreatedAt: m.createdAt,
	})
}

func (s *Server) handleDownloadMedia(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	m, ok := s.ownedMediaLocked(w, r)
	if !ok {
		s.state.mu.Unlock()
		return
	}
	data := m.data
	contentType := m.contentType
	s.state.mu.Unlock()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	m, ok := s.ownedMediaLocked(w, r)
	if !ok {
		return
	}
	delete(s.state.media, m.id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ownedMediaLocked(w http.ResponseWriter, r *http.Request) (*mediaObject, bool) {
	m := s.state.media[pathID(r, "mediaID")]
	if m == nil || m.ownerID != requestUser(r) {
		httpError(w, http.StatusNotFound, "media not found")
		return nil, false
	}
	return m, true
}
