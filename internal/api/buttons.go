package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/streamdeckx/internal/action"
	"github.com/nerrad567/streamdeckx/internal/deck"
	"github.com/nerrad567/streamdeckx/internal/dispatch"
	"github.com/nerrad567/streamdeckx/internal/render"
)

// Request bodies for the button endpoints.
type (
	textRequest struct {
		Text string `json:"text"`
	}
	colorsRequest struct {
		BackgroundColor string `json:"background_color"`
		TextColor       string `json:"text_color"`
	}
	fontSizeRequest struct {
		FontSize int `json:"font_size"`
	}
	fontRequest struct {
		Font string `json:"font"`
	}
	backgroundImageRequest struct {
		Image string `json:"image"`
	}
	addActionRequest struct {
		Type      string `json:"type"`
		Parameter string `json:"parameter"`
	}
	// Omitted fields keep their current value.
	updateActionRequest struct {
		Order     *int    `json:"order"`
		Parameter *string `json:"parameter"`
	}
)

// FaceResponse is a rendered button face.
type FaceResponse struct {
	Position int    `json:"position"`
	Size     int    `json:"size"`
	PNG      string `json:"png"`
}

func (s *Server) handleGetButton(w http.ResponseWriter, r *http.Request) {
	_, b, ok := s.buttonFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b.Describe())
}

// handleButtonFace renders the button at the deck's key size and returns it
// as a base64 PNG.
func (s *Server) handleButtonFace(w http.ResponseWriter, r *http.Request) {
	d, b, ok := s.buttonFromPath(w, r)
	if !ok {
		return
	}
	img, err := b.Face()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	encoded, err := render.EncodePNGBase64(img)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FaceResponse{
		Position: b.Position(),
		Size:     d.KeySize(),
		PNG:      encoded,
	})
}

func (s *Server) handleSetText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	s.mutateButton(w, r, &req, func(b *deck.Button) error {
		return b.SetText(r.Context(), req.Text)
	})
}

func (s *Server) handleSetColors(w http.ResponseWriter, r *http.Request) {
	var req colorsRequest
	s.mutateButton(w, r, &req, func(b *deck.Button) error {
		return b.SetColors(r.Context(), req.BackgroundColor, req.TextColor)
	})
}

func (s *Server) handleSetFontSize(w http.ResponseWriter, r *http.Request) {
	var req fontSizeRequest
	s.mutateButton(w, r, &req, func(b *deck.Button) error {
		return b.SetFontSize(r.Context(), req.FontSize)
	})
}

func (s *Server) handleSetFont(w http.ResponseWriter, r *http.Request) {
	var req fontRequest
	s.mutateButton(w, r, &req, func(b *deck.Button) error {
		return b.SetFont(r.Context(), req.Font)
	})
}

// handleSetBackgroundImage stores a base64 image. The image is decoded
// first so an undecodable upload is rejected instead of stored.
func (s *Server) handleSetBackgroundImage(w http.ResponseWriter, r *http.Request) {
	var req backgroundImageRequest
	s.mutateButton(w, r, &req, func(b *deck.Button) error {
		if req.Image != "" {
			if _, err := render.DecodeImage(req.Image); err != nil {
				return &badRequestError{err: err}
			}
		}
		return b.SetBackgroundImage(r.Context(), req.Image)
	})
}

// mutateButton decodes the body into req, applies fn to the addressed
// button and responds with the updated button.
func (s *Server) mutateButton(w http.ResponseWriter, r *http.Request, req any, fn func(*deck.Button) error) {
	_, b, ok := s.buttonFromPath(w, r)
	if !ok {
		return
	}
	if !decodeJSON(w, r, req) {
		return
	}
	if err := fn(b); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Describe())
}

func (s *Server) handleAddAction(w http.ResponseWriter, r *http.Request) {
	_, b, ok := s.buttonFromPath(w, r)
	if !ok {
		return
	}
	var req addActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	typ, err := action.ParseType(req.Type)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	a, err := b.AddAction(r.Context(), typ, req.Parameter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, action.Describe(a))
}

func (s *Server) handleUpdateAction(w http.ResponseWriter, r *http.Request) {
	_, b, ok := s.buttonFromPath(w, r)
	if !ok {
		return
	}
	id, ok := actionIDFromPath(w, r)
	if !ok {
		return
	}
	var req updateActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var current action.Action
	for _, a := range b.Actions() {
		if a.ID() == id {
			current = a
			break
		}
	}
	if current == nil {
		s.writeDomainError(w, r, &deck.NotFoundError{Entity: "action", Key: strconv.FormatInt(id, 10)})
		return
	}
	order, parameter := current.Order(), current.Parameter()
	if req.Order != nil {
		order = *req.Order
	}
	if req.Parameter != nil {
		parameter = *req.Parameter
	}

	a, err := b.UpdateAction(r.Context(), id, order, parameter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, action.Describe(a))
}

func (s *Server) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	_, b, ok := s.buttonFromPath(w, r)
	if !ok {
		return
	}
	id, ok := actionIDFromPath(w, r)
	if !ok {
		return
	}
	if err := b.RemoveAction(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExecute runs the button's sequence as a manual trigger. A sequence
// that aborts still answers 200; the execution record carries the error.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	d, b, ok := s.buttonFromPath(w, r)
	if !ok {
		return
	}
	e, err := s.executor.Trigger(r.Context(), d.Serial(), b.Position(), dispatch.SourceAPI)
	if err != nil && e.ID == "" {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func actionIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "action id must be a positive integer")
		return 0, false
	}
	return id, true
}

// badRequestError marks a handler-level validation failure.
type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }
