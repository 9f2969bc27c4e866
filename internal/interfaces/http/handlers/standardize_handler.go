package handlers

import (
	"fmt"
	"net/http"

	"github.com/AAriam/rdkit/internal/application/standardize"
	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/prometheus"
	"github.com/AAriam/rdkit/internal/interfaces/http/middleware"
	"github.com/AAriam/rdkit/pkg/errors"
)

const (
	defaultMaxBodySize  = 8 << 20
	defaultMaxBatchSize = 1000
)

// StandardizeHandler serves the reionize, uncharge and standardize
// endpoints and the catalog listing.
type StandardizeHandler struct {
	service      standardize.Service
	logger       logging.Logger
	metrics      *prometheus.AppMetrics
	maxBodySize  int64
	maxBatchSize int
}

// HandlerOption configures a StandardizeHandler.
type HandlerOption func(*StandardizeHandler)

// WithLimits bounds the request body size and the molecules per batch.
// Non-positive values keep the defaults.
func WithLimits(maxBodySize int64, maxBatchSize int) HandlerOption {
	return func(h *StandardizeHandler) {
		if maxBodySize > 0 {
			h.maxBodySize = maxBodySize
		}
		if maxBatchSize > 0 {
			h.maxBatchSize = maxBatchSize
		}
	}
}

// WithBatchMetrics records batch sizes.
func WithBatchMetrics(m *prometheus.AppMetrics) HandlerOption {
	return func(h *StandardizeHandler) { h.metrics = m }
}

// NewStandardizeHandler creates a new StandardizeHandler.
func NewStandardizeHandler(svc standardize.Service, logger logging.Logger, opts ...HandlerOption) *StandardizeHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	h := &StandardizeHandler{
		service:      svc,
		logger:       logger,
		maxBodySize:  defaultMaxBodySize,
		maxBatchSize: defaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MoleculeInput is one molecule of a batch request.
type MoleculeInput struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	SMILES  string `json:"smiles,omitempty"`
	Molfile string `json:"molfile,omitempty"`
}

func (m MoleculeInput) input() string {
	if m.SMILES != "" {
		return m.SMILES
	}
	return m.Molfile
}

// StandardizeRequest is the body of the POST endpoints: a single molecule
// (smiles or molfile) or a batch in molecules. Operations is only accepted
// by /standardize.
type StandardizeRequest struct {
	MoleculeInput
	Molecules  []MoleculeInput `json:"molecules,omitempty"`
	Operations []string        `json:"operations,omitempty"`
}

// BatchResponse is returned for batch requests. Failed molecules carry
// error and error_code in their result.
type BatchResponse struct {
	RunID   string                `json:"run_id"`
	Results []*standardize.Result `json:"results"`
	Failed  int                   `json:"failed"`
}

// CatalogPair is one acid/base pair; rank 0 is the strongest acid.
type CatalogPair struct {
	Rank int    `json:"rank"`
	Name string `json:"name"`
	Acid string `json:"acid"`
	Base string `json:"base"`
}

// CatalogResponse lists the active catalog.
type CatalogResponse struct {
	Count int           `json:"count"`
	Pairs []CatalogPair `json:"pairs"`
}

// Reionize handles POST /api/v1/reionize.
func (h *StandardizeHandler) Reionize(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, []standardize.Operation{standardize.OpReionize})
}

// Uncharge handles POST /api/v1/uncharge.
func (h *StandardizeHandler) Uncharge(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, []standardize.Operation{standardize.OpUncharge})
}

// Standardize handles POST /api/v1/standardize. Operations default to the
// service's configured list.
func (h *StandardizeHandler) Standardize(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, nil)
}

// Catalog handles GET /api/v1/catalog.
func (h *StandardizeHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	entries := h.service.Catalog()
	resp := CatalogResponse{Count: len(entries), Pairs: make([]CatalogPair, len(entries))}
	for i, e := range entries {
		resp.Pairs[i] = CatalogPair{Rank: i, Name: e.Name, Acid: e.Acid, Base: e.Base}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StandardizeHandler) serve(w http.ResponseWriter, r *http.Request, fixed []standardize.Operation) {
	var body StandardizeRequest
	if err := decodeJSON(w, r, h.maxBodySize, &body); err != nil {
		writeAppError(w, r, err)
		return
	}

	ops := fixed
	if len(body.Operations) > 0 {
		if fixed != nil {
			writeAppError(w, r, errors.InvalidParam("operations is only accepted by /standardize"))
			return
		}
		for _, name := range body.Operations {
			op, err := standardize.ParseOperation(name)
			if err != nil {
				writeAppError(w, r, err)
				return
			}
			ops = append(ops, op)
		}
	}

	single := body.input() != ""
	switch {
	case single && len(body.Molecules) > 0:
		writeAppError(w, r, errors.InvalidParam("give either a single molecule or molecules, not both"))
		return
	case single:
		h.serveSingle(w, r, body.MoleculeInput, ops)
	case len(body.Molecules) > 0:
		h.serveBatch(w, r, body.Molecules, ops)
	default:
		writeAppError(w, r, errors.InvalidParam("smiles, molfile or molecules is required"))
	}
}

func (h *StandardizeHandler) serveSingle(w http.ResponseWriter, r *http.Request, m MoleculeInput, ops []standardize.Operation) {
	res, err := h.service.Standardize(r.Context(), standardize.Request{
		ID:         m.ID,
		Name:       m.Name,
		Input:      m.input(),
		Operations: ops,
	})
	if err != nil {
		h.logger.Debug("standardization rejected",
			logging.String("request_id", middleware.ContextGetRequestID(r.Context())),
			logging.Err(err))
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *StandardizeHandler) serveBatch(w http.ResponseWriter, r *http.Request, mols []MoleculeInput, ops []standardize.Operation) {
	if len(mols) > h.maxBatchSize {
		writeAppError(w, r, errors.InvalidParam("batch too large").
			WithDetail(fmt.Sprintf("molecules=%d max=%d", len(mols), h.maxBatchSize)))
		return
	}
	if h.metrics != nil {
		prometheus.RecordBatch(h.metrics, "http", len(mols))
	}

	reqs := make([]standardize.Request, len(mols))
	for i, m := range mols {
		reqs[i] = standardize.Request{ID: m.ID, Name: m.Name, Input: m.input(), Operations: ops}
	}
	results, err := h.service.StandardizeBatch(r.Context(), reqs)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	resp := BatchResponse{Results: results}
	for _, res := range results {
		resp.RunID = res.RunID
		if res.Error != "" {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
