/*
Package api
File: share_handlers.go
Description:
    HTTP handlers for share links. Clients send the same inputs they would
    send to /api/calculate; values are recomputed server-side so a shared
    link can never carry a forged number.
*/

package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/everforgeworks/growcalc/internal/share"
	"github.com/everforgeworks/growcalc/internal/valuation"
)

// ShareRequest is the body of POST /api/share. Type "single" uses
// Calculation, type "batch" uses Items.
type ShareRequest struct {
	Type        share.Kind         `json:"type"`
	Calculation *CalculateRequest  `json:"calculation,omitempty"`
	Items       []CalculateRequest `json:"items,omitempty"`
}

type shareEnvelope struct {
	Success bool          `json:"success"`
	Data    *share.Record `json:"data,omitempty"`
	Link    string        `json:"link,omitempty"`
	Error   string        `json:"error,omitempty"`
}

const shareGoneMessage = "Shared result not found or has expired"

// handleCreateShare values the submitted inputs and stores the result.
func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	rec, err := s.buildRecord(r, req)
	if err != nil {
		writeError(w, err)
		return
	}

	rec, err = s.shares.Create(r.Context(), rec)
	if err != nil {
		if errors.Is(err, share.ErrInvalid) {
			writeError(w, &valuation.InvalidArgumentError{Field: "type", Reason: err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shareEnvelope{Success: true, Data: &rec, Link: s.shares.Link(rec.ID)})
}

func (s *Server) buildRecord(r *http.Request, req ShareRequest) (share.Record, error) {
	snap := s.snap()

	switch req.Type {
	case share.KindSingle:
		if req.Calculation == nil {
			return share.Record{}, &valuation.InvalidArgumentError{Field: "calculation", Reason: "required for single shares"}
		}
		resp, err := s.calculate(snap, *req.Calculation)
		if err != nil {
			return share.Record{}, err
		}
		return share.Record{Kind: share.KindSingle, Single: &resp.Result, WeightRange: resp.WeightRange}, nil

	case share.KindBatch:
		reqs, err := s.normalizeBatch(req.Items)
		if err != nil {
			return share.Record{}, err
		}
		res := snap.engine.ComputeBatch(r.Context(), reqs)
		if res.Succeeded == 0 {
			return share.Record{}, &valuation.InvalidArgumentError{Field: "items", Reason: "no item could be valued"}
		}
		return share.Record{Kind: share.KindBatch, Batch: &res}, nil
	}
	return share.Record{}, &valuation.InvalidArgumentError{
		Field:  "type",
		Reason: fmt.Sprintf("must be %q or %q, got %q", share.KindSingle, share.KindBatch, req.Type),
	}
}

// handleGetShare returns a live share, or 404 when it is unknown or expired.
func (s *Server) handleGetShare(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	rec, err := s.shares.Get(r.Context(), id)
	switch {
	case errors.Is(err, share.ErrNotFound), errors.Is(err, share.ErrExpired):
		writeJSON(w, http.StatusNotFound, shareEnvelope{Error: shareGoneMessage})
		return
	case err != nil:
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shareEnvelope{Success: true, Data: &rec, Link: s.shares.Link(rec.ID)})
}

func (s *Server) handleDeleteShare(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	err := s.shares.Delete(r.Context(), id)
	switch {
	case errors.Is(err, share.ErrNotFound):
		writeJSON(w, http.StatusNotFound, shareEnvelope{Error: shareGoneMessage})
		return
	case err != nil:
		writeError(w, err)
		return
	}
	slog.Info("share deleted", "share_id", id)
	writeJSON(w, http.StatusOK, shareEnvelope{Success: true})
}

// handleShareCleanup purges expired shares on demand.
func (s *Server) handleShareCleanup(w http.ResponseWriter, r *http.Request) {
	n, err := s.shares.Cleanup(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"deleted_count": n,
		"message":       fmt.Sprintf("Cleaned up %d expired shared results", n),
	})
}

func (s *Server) handleShareStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.shares.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": st})
}
