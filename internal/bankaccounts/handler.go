package bankaccounts

import (
	"net/http"

	"clearhaven/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, userID string) {
	rels, err := h.svc.List(r.Context(), userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if rels == nil {
		rels = []Relationship{}
	}
	httputil.WriteJSON(w, http.StatusOK, rels)
}

func (h *Handler) Link(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Nickname     string `json:"nickname"`
		BankName     string `json:"bank_name"`
		AccountLast4 string `json:"account_last4"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	rel, err := h.svc.Link(r.Context(), userID, req.Nickname, req.BankName, req.AccountLast4)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rel)
}
