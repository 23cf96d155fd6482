package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/heartmarshall/campaign-notes/internal/domain"
	"github.com/heartmarshall/campaign-notes/internal/service/note"
	"github.com/heartmarshall/campaign-notes/pkg/ctxutil"
)

const maxBodyBytes = 1 << 20

type noteService interface {
	CreateNote(ctx context.Context, input note.CreateNoteInput) (*domain.NoteView, error)
	GetNote(ctx context.Context, noteID uuid.UUID) (*domain.NoteView, error)
	ListNotes(ctx context.Context, input note.ListNotesInput) ([]*domain.NoteView, error)
	UpdateNote(ctx context.Context, input note.UpdateNoteInput) (*domain.NoteView, error)
	ToggleCheck(ctx context.Context, input note.ToggleCheckInput) (*domain.NoteView, error)
	DeleteNote(ctx context.Context, noteID uuid.UUID) error
	AcquireLease(ctx context.Context, noteID uuid.UUID) (*domain.NoteView, error)
	Heartbeat(ctx context.Context, noteID uuid.UUID) error
	ReleaseLease(ctx context.Context, noteID uuid.UUID) error
	ForceRelease(ctx context.Context, noteID uuid.UUID) error
	ListVersions(ctx context.Context, noteID uuid.UUID) ([]domain.NoteVersionSummary, error)
	GetVersion(ctx context.Context, noteID, versionID uuid.UUID) (*domain.NoteVersion, error)
	RestoreVersion(ctx context.Context, noteID, versionID uuid.UUID) (*domain.NoteView, error)
}

type eventReader interface {
	Recent(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.NoteEvent, error)
}

// NoteHandler serves the notes API.
type NoteHandler struct {
	svc    noteService
	events eventReader
	log    *slog.Logger
}

// NewNoteHandler creates a NoteHandler.
func NewNoteHandler(svc noteService, events eventReader, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{svc: svc, events: events, log: logger.With("handler", "notes")}
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := note.ListNotesInput{Scope: domain.NoteScope(q.Get("scope"))}
	if raw := q.Get("entityId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid entityId")
			return
		}
		input.EntityID = &id
	}

	views, err := h.svc.ListNotes(r.Context(), input)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	items := make([]noteResponse, len(views))
	for i, v := range views {
		items[i] = toNoteResponse(v)
	}
	writeJSON(w, http.StatusOK, listResponse[noteResponse]{Items: items})
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.svc.CreateNote(r.Context(), note.CreateNoteInput{
		EntityID:     req.EntityID,
		Title:        req.Title,
		Blocks:       req.Blocks,
		RichDocument: req.RichDocument,
		Color:        req.Color,
		Pinned:       req.Pinned,
		IsShared:     req.IsShared,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNoteResponse(view))
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondNote(w, r, http.StatusOK)(h.svc.GetNote(r.Context(), id))
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateNoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	h.respondNote(w, r, http.StatusOK)(h.svc.UpdateNote(r.Context(), note.UpdateNoteInput{
		NoteID:       id,
		Title:        req.Title,
		Blocks:       req.Blocks,
		RichDocument: req.RichDocument,
		Color:        req.Color,
		Pinned:       req.Pinned,
		IsShared:     req.IsShared,
	}))
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondEmpty(w, r, h.svc.DeleteNote(r.Context(), id))
}

func (h *NoteHandler) ToggleCheck(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req toggleCheckRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.BlockIndex == nil || req.ItemIndex == nil {
		handleError(h.log, w, r, domain.NewValidationErrors(missingIndices(req)))
		return
	}

	h.respondNote(w, r, http.StatusOK)(h.svc.ToggleCheck(r.Context(), note.ToggleCheckInput{
		NoteID:     id,
		BlockIndex: *req.BlockIndex,
		ItemIndex:  *req.ItemIndex,
	}))
}

func (h *NoteHandler) AcquireLease(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondNote(w, r, http.StatusOK)(h.svc.AcquireLease(r.Context(), id))
}

func (h *NoteHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondEmpty(w, r, h.svc.Heartbeat(r.Context(), id))
}

func (h *NoteHandler) ReleaseLease(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondEmpty(w, r, h.svc.ReleaseLease(r.Context(), id))
}

func (h *NoteHandler) ForceRelease(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.respondEmpty(w, r, h.svc.ForceRelease(r.Context(), id))
}

func (h *NoteHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	list, err := h.svc.ListVersions(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	items := make([]versionSummaryResponse, len(list))
	for i, s := range list {
		items[i] = toVersionSummary(s)
	}
	writeJSON(w, http.StatusOK, listResponse[versionSummaryResponse]{Items: items})
}

func (h *NoteHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	versionID, ok := pathID(w, r, "versionId")
	if !ok {
		return
	}

	v, err := h.svc.GetVersion(r.Context(), id, versionID)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVersionResponse(v))
}

func (h *NoteHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	versionID, ok := pathID(w, r, "versionId")
	if !ok {
		return
	}
	h.respondNote(w, r, http.StatusOK)(h.svc.RestoreVersion(r.Context(), id, versionID))
}

// Events returns the recent change events of the caller's campaign, newest
// first, so a reconnecting client can catch up.
func (h *NoteHandler) Events(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := ctxutil.CampaignIDFromCtx(r.Context())
	if !ok {
		handleError(h.log, w, r, domain.ErrUnauthorized)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	events, err := h.events.Recent(r.Context(), campaignID, limit)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.NoteEvent]{Items: events})
}

func (h *NoteHandler) respondNote(w http.ResponseWriter, r *http.Request, status int) func(*domain.NoteView, error) {
	return func(v *domain.NoteView, err error) {
		if err != nil {
			handleError(h.log, w, r, err)
			return
		}
		writeJSON(w, status, toNoteResponse(v))
	}
}

func (h *NoteHandler) respondEmpty(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into dst. Block validation errors raised while
// decoding keep their field detail.
func (h *NoteHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrValidation) {
		handleError(h.log, w, r, err)
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func missingIndices(req toggleCheckRequest) []domain.FieldError {
	var errs []domain.FieldError
	if req.BlockIndex == nil {
		errs = append(errs, domain.FieldError{Field: "blockIndex", Message: "required"})
	}
	if req.ItemIndex == nil {
		errs = append(errs, domain.FieldError{Field: "itemIndex", Message: "required"})
	}
	return errs
}
