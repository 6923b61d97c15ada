package intake

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type CreateConversationRequest struct {
	PatientID string `json:"patient_id"`
}

type CreateConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	Opening        string `json:"opening"`
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	pid, err := uuid.Parse(req.PatientID)
	if err != nil {
		// Anonymous intake is allowed; mint a patient id.
		pid = uuid.New()
	}

	c, opening, err := h.svc.CreateConversation(r.Context(), pid)
	if err != nil {
		http.Error(w, "Failed to create conversation", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(CreateConversationResponse{
		ConversationID: c.ID.String(),
		Opening:        opening,
	})
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(req.ConversationID)
	if err != nil {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	resp, err := h.svc.ProcessMessage(r.Context(), id, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HandleAudioUpload(w http.ResponseWriter, r *http.Request) {
	// Voice notes only; cap the upload at 10MB.
	r.ParseMultipartForm(10 << 20)

	id, err := uuid.Parse(r.FormValue("conversation_id"))
	if err != nil {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "Error retrieving audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		http.Error(w, "Failed to read audio file", http.StatusInternalServerError)
		return
	}

	resp, err := h.svc.ProcessAudio(r.Context(), id, buf.Bytes(), header.Filename)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	status, err := h.svc.GetStatus(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(status)
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	http.Error(w, "Processing failed", http.StatusInternalServerError)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/conversation", h.CreateConversation)
	r.Post("/conversation/chat", h.HandleChat)
	r.Post("/conversation/audio", h.HandleAudioUpload)
	r.Get("/conversation/{id}/status", h.HandleStatus)
}
