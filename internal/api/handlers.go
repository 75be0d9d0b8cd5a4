/*
Package api
File: handlers.go
Description:
    Contains the HTTP handlers for the calculator REST API.
    These functions decode incoming JSON, normalize it (trim names, apply
    defaults), call the valuation engine and return JSON responses.

    Key Responsibilities:
    - Input Validation (Is the JSON valid? Is the quantity within limits?)
    - Error Mapping (InvalidArgument -> 400, NotFound -> 404)
    - Catalog passthrough for the UI dropdowns
*/

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/everforgeworks/growcalc/internal/catalog"
	"github.com/everforgeworks/growcalc/internal/valuation"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// CappedNotice is attached to results whose per-unit value hit the ceiling.
const CappedNotice = "value exceeds in-game cap"

// Request DTOs (Data Transfer Objects)
// These structs define exactly what we expect the client to send us.

// CalculateRequest is one plant to value. Variant defaults to "Normal" and
// PlantAmount to 1 when omitted.
type CalculateRequest struct {
	PlantName   string   `json:"plant_name"`
	Variant     string   `json:"variant"`
	Weight      float64  `json:"weight"`
	Mutations   []string `json:"mutations"`
	PlantAmount *int     `json:"plant_amount"`
}

type BatchRequest struct {
	Items []CalculateRequest `json:"items"`
}

type MutationMultiplierRequest struct {
	Mutations []string `json:"mutations"`
}

// Response DTOs

type CalculateResponse struct {
	valuation.Result
	WeightRange *catalog.WeightRange `json:"weight_range,omitempty"`
	Notice      string               `json:"notice,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`  // plant | variant | mutation
	Name  string `json:"name,omitempty"`  // offending name for not-found errors
	Field string `json:"field,omitempty"` // offending field for invalid arguments
}

// handleGetPlants returns every plant in catalog order.
func (s *Server) handleGetPlants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plants": s.snap().catalog.Plants()})
}

func (s *Server) handleGetVariants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"variants": s.snap().catalog.Variants()})
}

func (s *Server) handleGetMutations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"mutations": s.snap().catalog.Mutations()})
}

// handleGetPlant returns a single plant record.
func (s *Server) handleGetPlant(w http.ResponseWriter, r *http.Request) {
	p, err := s.snap().catalog.Plant(pathName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleGetWeightRange returns the advisory weight band of a plant.
func (s *Server) handleGetWeightRange(w http.ResponseWriter, r *http.Request) {
	wr, err := s.snap().catalog.WeightRange(pathName(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wr)
}

// handleCalculate values a single plant stack.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	snap := s.snap()
	resp, err := s.calculate(snap, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// calculate normalizes req and runs it through the engine of snap.
func (s *Server) calculate(snap *snapshot, req CalculateRequest) (CalculateResponse, error) {
	res, err := snap.engine.Compute(normalize(req))
	if err != nil {
		return CalculateResponse{}, err
	}

	resp := CalculateResponse{Result: res}
	if wr, err := snap.catalog.WeightRange(res.Plant); err == nil {
		resp.WeightRange = &wr
	}
	if res.Capped {
		resp.Notice = CappedNotice
	}
	return resp, nil
}

// handleCalculateBatch values many plant stacks. Per-item failures are
// reported inside the response, not as an HTTP error.
func (s *Server) handleCalculateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	reqs, err := s.normalizeBatch(req.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	res := s.snap().engine.ComputeBatch(r.Context(), reqs)
	writeJSON(w, http.StatusOK, res)
}

// handleMutationMultiplier accepts either a bare JSON array of names or
// {"mutations": [...]}.
func (s *Server) handleMutationMultiplier(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, bodyError(err))
		return
	}

	var names []string
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &names)
	} else {
		var req MutationMultiplierRequest
		err = json.Unmarshal(body, &req)
		names = req.Mutations
	}
	if err != nil {
		writeError(w, &valuation.InvalidArgumentError{Field: "body", Reason: "malformed JSON"})
		return
	}

	m, err := s.snap().engine.MutationMultiplier(trimAll(names))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// normalize trims names and fills defaults. The engine itself never guesses;
// range checks (including the quantity ceiling) are left to it so a batch
// reports them per item.
func normalize(req CalculateRequest) valuation.Request {
	variant := strings.TrimSpace(req.Variant)
	if variant == "" {
		variant = catalog.NormalVariant
	}
	qty := 1
	if req.PlantAmount != nil {
		qty = *req.PlantAmount
	}
	return valuation.Request{
		Plant:     strings.TrimSpace(req.PlantName),
		Variant:   variant,
		Mutations: trimAll(req.Mutations),
		Weight:    req.Weight,
		Quantity:  qty,
	}
}

func (s *Server) normalizeBatch(items []CalculateRequest) ([]valuation.Request, error) {
	if len(items) == 0 {
		return nil, &valuation.InvalidArgumentError{Field: "items", Reason: "batch is empty"}
	}
	if len(items) > s.opts.MaxBatchItems {
		return nil, &valuation.InvalidArgumentError{
			Field:  "items",
			Reason: fmt.Sprintf("at most %d items per batch, got %d", s.opts.MaxBatchItems, len(items)),
		}
	}
	reqs := make([]valuation.Request, len(items))
	for i, it := range items {
		reqs[i] = normalize(it)
	}
	return reqs, nil
}

func pathName(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("name"))
}

func trimAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return bodyError(err)
	}
	return nil
}

// bodyError distinguishes an oversized body from malformed JSON.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &valuation.InvalidArgumentError{
			Field:  "body",
			Reason: fmt.Sprintf("exceeds %d bytes", tooLarge.Limit),
		}
	}
	return &valuation.InvalidArgumentError{Field: "body", Reason: "malformed JSON"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response", "err", err)
	}
}

// writeError maps engine and catalog errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var (
		nf *catalog.NotFoundError
		ia *valuation.InvalidArgumentError
	)
	switch {
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: string(nf.Kind), Name: nf.Name})
	case errors.As(err, &ia):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: ia.Field})
	default:
		slog.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
