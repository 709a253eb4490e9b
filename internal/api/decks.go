package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/streamdeckx/internal/deck"
	"github.com/nerrad567/streamdeckx/internal/discovery"
)

// AttachmentView is one attached deck in a rescan response.
type AttachmentView struct {
	Serial  string    `json:"serial"`
	Kind    deck.Kind `json:"kind"`
	Bound   bool      `json:"bound"`
	Created bool      `json:"created"`
}

// RescanResponse reports an on-demand discovery pass.
type RescanResponse struct {
	Attached []AttachmentView `json:"attached"`
	Detached []string         `json:"detached"`
	Skipped  int              `json:"skipped"`
	Error    string           `json:"error,omitempty"`
}

// handleListDecks returns a summary of every registered deck.
func (s *Server) handleListDecks(w http.ResponseWriter, _ *http.Request) {
	decks := s.decks.List()
	views := make([]deck.View, len(decks))
	for i, d := range decks {
		views[i] = d.Describe(false)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"decks": views,
		"count": len(views),
	})
}

// handleGetDeck returns one deck with its buttons.
func (s *Server) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	d, ok := s.deckFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d.Describe(true))
}

// handleRescan runs a discovery pass immediately. Per-device failures are
// reported alongside the devices that did attach.
func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "discovery is not running")
		return
	}

	result, err := s.scanner.Rescan(r.Context())
	switch {
	case errors.Is(err, discovery.ErrScannerStopped):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
		return
	case errors.Is(err, discovery.ErrNoDevices):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
		return
	}

	resp := RescanResponse{
		Attached: make([]AttachmentView, len(result.Attached)),
		Detached: result.Detached,
		Skipped:  result.Skipped,
	}
	if resp.Detached == nil {
		resp.Detached = []string{}
	}
	for i, a := range result.Attached {
		resp.Attached[i] = AttachmentView{
			Serial:  a.Deck.Serial(),
			Kind:    a.Deck.Kind(),
			Bound:   a.Bound,
			Created: a.Created,
		}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// deckFromPath resolves the {serial} URL parameter, writing a 404 when the
// deck is not registered.
func (s *Server) deckFromPath(w http.ResponseWriter, r *http.Request) (*deck.Deck, bool) {
	serial := chi.URLParam(r, "serial")
	d, ok := s.decks.Get(serial)
	if !ok {
		writeNotFound(w, "deck "+serial+" not found")
		return nil, false
	}
	return d, true
}

// buttonFromPath resolves {serial} and {position}.
func (s *Server) buttonFromPath(w http.ResponseWriter, r *http.Request) (*deck.Deck, *deck.Button, bool) {
	d, ok := s.deckFromPath(w, r)
	if !ok {
		return nil, nil, false
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil {
		writeBadRequest(w, "position must be an integer")
		return nil, nil, false
	}
	b, err := d.Button(position)
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, nil, false
	}
	return d, b, true
}

// decodeJSON reads the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
