package api

import (
	"net/http"
	"strings"

	"github.com/Veraticus/house-money/internal/model"
)

type tagRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type tagResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func toTagResponse(t *model.Tag) tagResponse {
	return tagResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Color:       t.Color,
	}
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]tagResponse, 0, len(tags))
	for i := range tags {
		response = append(response, toTagResponse(&tags[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tag, err := s.store.CreateTag(r.Context(), req.Name, req.Description, req.Color)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTagResponse(tag))
}

func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.UpdateTag(r.Context(), id, req.Name, req.Description, req.Color); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagResponse{ID: id, Name: strings.TrimSpace(req.Name), Description: req.Description, Color: req.Color})
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.store.DeleteTag(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
