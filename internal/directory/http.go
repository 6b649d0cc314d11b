package directory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryandanave7-glitch/server5/internal/httpserver"
)

// Handlers exposes the directory over plain request/response HTTP. Unlike
// the relay core, these endpoints do return client-visible error detail.
type Handlers struct {
	store *Store
	log   *slog.Logger
}

func NewHandlers(store *Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: store, log: logger}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/claim", h.handleClaim)
	mux.HandleFunc("GET /api/resolve", h.handleResolve)
}

type claimRequest struct {
	Address    string `json:"address"`
	InviteCode string `json:"inviteCode"`
}

type resolveResponse struct {
	InviteCode string `json:"inviteCode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		httpserver.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if req.Address == "" || req.InviteCode == "" {
		httpserver.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "address and inviteCode are required"})
		return
	}

	err := h.store.Claim(r.Context(), req.Address, req.InviteCode)
	if errors.Is(err, ErrAddressTaken) {
		httpserver.WriteJSON(w, http.StatusConflict, errorResponse{Error: "address already claimed"})
		return
	}
	if err != nil {
		h.log.Error("claim failed", "err", err)
		httpserver.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage failure"})
		return
	}

	h.log.Info("address claimed", "address", req.Address)
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) handleResolve(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		httpserver.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "address is required"})
		return
	}

	inviteCode, err := h.store.Resolve(r.Context(), address)
	if errors.Is(err, ErrNotFound) {
		httpserver.WriteJSON(w, http.StatusNotFound, errorResponse{Error: "address not found"})
		return
	}
	if err != nil {
		h.log.Error("resolve failed", "err", err)
		httpserver.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage failure"})
		return
	}

	httpserver.WriteJSON(w, http.StatusOK, resolveResponse{InviteCode: inviteCode})
}
