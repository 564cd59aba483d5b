package closure

import (
	"errors"
	"log"
	"net/http"

	"clearhaven/internal/brokerage"
	"clearhaven/internal/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps service errors onto the response taxonomy. Ownership
// failures stay generic, validation failures are field-specific, backend
// 5xx becomes 502, backend 4xx keeps its status, anything else is a 500
// with detail logged server-side only.
func writeError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	var se *brokerage.StatusError
	switch {
	case errors.As(err, &ve):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: ve.Error()})
	case errors.Is(err, ErrNotOwned):
		httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorResponse{Error: "access denied"})
	case errors.Is(err, ErrAlreadyClosing):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: ErrAlreadyClosing.Error()})
	case errors.Is(err, ErrNotPending):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "account must be pending_closure"})
	case errors.Is(err, brokerage.ErrUpstream):
		log.Printf("closure: upstream failure: %v", err)
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{Error: "brokerage backend unavailable"})
	case errors.As(err, &se):
		httputil.WriteJSON(w, se.Code, httputil.ErrorResponse{Error: se.Message})
	default:
		log.Printf("closure: internal error: %v", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
	}
}

func (h *Handler) CheckReadiness(w http.ResponseWriter, r *http.Request, userID, accountID string) {
	out, err := h.svc.CheckReadiness(r.Context(), userID, httputil.BearerToken(r), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type initiateRequest struct {
	ACHRelationshipID  string `json:"ach_relationship_id"`
	ConfirmLiquidation bool   `json:"confirm_liquidation"`
	ConfirmIrrevocable bool   `json:"confirm_irreversible"`
}

func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request, userID, accountID string) {
	var req initiateRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.svc.Initiate(r.Context(), userID, httputil.BearerToken(r), accountID, InitiateParams{
		ACHRelationshipID:  req.ACHRelationshipID,
		ConfirmLiquidation: req.ConfirmLiquidation,
		ConfirmIrrevocable: req.ConfirmIrrevocable,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Liquidate(w http.ResponseWriter, r *http.Request, userID, accountID string) {
	out, err := h.svc.Liquidate(r.Context(), userID, httputil.BearerToken(r), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type resumeRequest struct {
	ACHRelationshipID string `json:"ach_relationship_id"`
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request, userID, accountID string) {
	var req resumeRequest
	if r.ContentLength != 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
			return
		}
	}
	out, err := h.svc.Resume(r.Context(), userID, httputil.BearerToken(r), accountID, req.ACHRelationshipID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type closeRequest struct {
	FinalConfirmation bool `json:"final_confirmation"`
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request, userID, accountID string) {
	var req closeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.svc.Close(r.Context(), userID, httputil.BearerToken(r), accountID, req.FinalConfirmation)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request, userID, accountID string) {
	out, err := h.svc.Progress(r.Context(), userID, httputil.BearerToken(r), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

type statusResponse struct {
	Data *StatusPayload `json:"data"`
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request, userID string) {
	out, err := h.svc.ClosureStatus(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Data: out})
}

type updateStatusRequest struct {
	Status             string `json:"status"`
	ConfirmationNumber string `json:"confirmationNumber"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, userID string) {
	var req updateStatusRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.svc.UpdateStatus(r.Context(), userID, Status(req.Status), req.ConfirmationNumber); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}
