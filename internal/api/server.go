/*
Package api
File: server.go
Description:
    Wires the HTTP routes to the valuation engine, the catalog and the share
    service.

    The catalog and engine are held together as one immutable snapshot behind
    an atomic pointer. Requests load the pointer once and work against that
    snapshot; Reload (SIGHUP) swaps in a new one without locking readers.
*/

package api

import (
	"net/http"
	"sync/atomic"

	"github.com/everforgeworks/growcalc/internal/catalog"
	"github.com/everforgeworks/growcalc/internal/share"
	"github.com/everforgeworks/growcalc/internal/valuation"
)

// Options are the HTTP-layer limits.
type Options struct {
	MaxQuantity      int // plant_amount ceiling per request or batch item
	MaxBatchItems    int // items per batch request
	BatchConcurrency int // engine fan-out
}

// snapshot pairs a catalog with the engine built on it.
type snapshot struct {
	catalog *catalog.Catalog
	engine  *valuation.Engine
}

// Server serves the calculator API.
type Server struct {
	current atomic.Pointer[snapshot]
	shares  *share.Service
	hub     *Hub
	opts    Options
}

// NewServer builds a Server. shares and hub may be nil, which disables the
// share routes and the websocket feed respectively.
func NewServer(cat *catalog.Catalog, shares *share.Service, hub *Hub, opts Options) *Server {
	if opts.MaxQuantity <= 0 {
		opts.MaxQuantity = 10000
	}
	if opts.MaxBatchItems <= 0 {
		opts.MaxBatchItems = 100
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = valuation.DefaultConcurrency
	}
	s := &Server{shares: shares, hub: hub, opts: opts}
	s.Reload(cat)
	return s
}

// Reload swaps the catalog used by subsequent requests.
func (s *Server) Reload(cat *catalog.Catalog) {
	s.current.Store(&snapshot{
		catalog: cat,
		engine: valuation.New(cat,
			valuation.WithConcurrency(s.opts.BatchConcurrency),
			valuation.WithMaxQuantity(s.opts.MaxQuantity),
		),
	})
}

func (s *Server) snap() *snapshot {
	return s.current.Load()
}

// Handler returns the routed, middleware-wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Catalog (read-only)
	mux.HandleFunc("GET /api/plants", s.handleGetPlants)
	mux.HandleFunc("GET /api/variants", s.handleGetVariants)
	mux.HandleFunc("GET /api/mutations", s.handleGetMutations)
	mux.HandleFunc("GET /api/plant/{name}", s.handleGetPlant)
	mux.HandleFunc("GET /api/weight-range/{name}", s.handleGetWeightRange)

	// Calculation
	mux.HandleFunc("POST /api/calculate", s.handleCalculate)
	mux.HandleFunc("POST /api/calculate/batch", s.handleCalculateBatch)
	mux.HandleFunc("POST /api/mutation-multiplier", s.handleMutationMultiplier)

	// Sharing
	if s.shares != nil {
		mux.HandleFunc("POST /api/share", s.handleCreateShare)
		mux.HandleFunc("GET /api/share/stats", s.handleShareStats)
		mux.HandleFunc("POST /api/share/cleanup", s.handleShareCleanup)
		mux.HandleFunc("GET /api/share/{id}", s.handleGetShare)
		mux.HandleFunc("DELETE /api/share/{id}", s.handleDeleteShare)
	}

	// Real-time share feed
	if s.hub != nil {
		mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(s.hub, w, r)
		})
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return logRequests(corsMiddleware(mux))
}
