// Package standardize provides the application-level charge standardization
// service. It sits between the CLI/HTTP interfaces and the charge domain:
// parse the input, run the requested operations, write canonical SMILES.
package standardize

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AAriam/rdkit/internal/domain/charge"
	"github.com/AAriam/rdkit/internal/domain/molecule"
	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
	"github.com/AAriam/rdkit/pkg/errors"
)

// Operation names one standardization step.
type Operation string

const (
	OpReionize Operation = "reionize"
	OpUncharge Operation = "uncharge"
)

// DefaultOperations runs reionization before uncharging.
var DefaultOperations = []Operation{OpReionize, OpUncharge}

// ParseOperation validates a user-supplied operation name.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpReionize, OpUncharge:
		return op, nil
	default:
		return "", errors.New(errors.ErrCodeOperationUnsupported, "unknown operation").WithDetail(s)
	}
}

// Service defines the charge standardization use cases.
type Service interface {
	Standardize(ctx context.Context, req Request) (*Result, error)
	StandardizeBatch(ctx context.Context, reqs []Request) ([]*Result, error)
	Catalog() []charge.AcidBaseEntry
}

// Request is one molecule to standardize. Input holds SMILES or a V2000
// molfile.
type Request struct {
	ID         string      `json:"id,omitempty"`
	Name       string      `json:"name,omitempty"`
	Input      string      `json:"input"`
	Operations []Operation `json:"operations,omitempty"`
}

// Result is the outcome for one request. In batch mode a failed item
// carries Error and ErrorCode instead of failing the batch.
type Result struct {
	ID           string         `json:"id,omitempty"`
	RunID        string         `json:"run_id"`
	Name         string         `json:"name,omitempty"`
	Input        string         `json:"input"`
	SMILES       string         `json:"smiles,omitempty"`
	Operations   []Operation    `json:"operations"`
	ChargeBefore int            `json:"charge_before"`
	ChargeAfter  int            `json:"charge_after"`
	Events       []charge.Event `json:"events,omitempty"`
	Cached       bool           `json:"cached"`
	Error        string         `json:"error,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
}

// Changed reports whether any atom charge was touched.
func (r *Result) Changed() bool {
	return len(r.Events) > 0
}

// ResultCache stores finished results. Get reports a miss with an error
// carrying errors.ErrCodeNotFound.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Metrics receives per-run observations.
type Metrics interface {
	ObserveStandardization(operations string, status string, d time.Duration)
	ObserveCache(hit bool)
}

// Option configures the service.
type Option func(*serviceImpl)

// WithResultCache enables result caching with the given TTL.
func WithResultCache(c ResultCache, ttl time.Duration) Option {
	return func(s *serviceImpl) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithConcurrency bounds the number of molecules a batch processes at once.
func WithConcurrency(n int) Option {
	return func(s *serviceImpl) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithEventSink forwards every event to sink in addition to the result.
func WithEventSink(sink charge.EventSink) Option {
	return func(s *serviceImpl) { s.sink = sink }
}

// WithDefaultOperations replaces DefaultOperations for requests that name
// no operations. An empty list keeps the built-in default.
func WithDefaultOperations(ops []Operation) Option {
	return func(s *serviceImpl) {
		if len(ops) > 0 {
			s.defaultOps = append([]Operation(nil), ops...)
		}
	}
}

// WithMetrics records run durations and cache hits.
func WithMetrics(m Metrics) Option {
	return func(s *serviceImpl) { s.metrics = m }
}

type serviceImpl struct {
	reionizer   *charge.Reionizer
	uncharger   *charge.Uncharger
	logger      logging.Logger
	cache       ResultCache
	cacheTTL    time.Duration
	concurrency int
	sink        charge.EventSink
	metrics     Metrics
	defaultOps  []Operation
	fingerprint string
}

// NewService creates the standardization service.
func NewService(reionizer *charge.Reionizer, uncharger *charge.Uncharger, logger logging.Logger, opts ...Option) (Service, error) {
	if reionizer == nil || uncharger == nil {
		return nil, errors.NotReady("standardize: reionizer and uncharger are required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &serviceImpl{
		reionizer:   reionizer,
		uncharger:   uncharger,
		logger:      logger.Named("standardize"),
		concurrency: 4,
		defaultOps:  DefaultOperations,
		fingerprint: configFingerprint(reionizer, uncharger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *serviceImpl) Catalog() []charge.AcidBaseEntry {
	return s.reionizer.Catalog().Entries()
}

func (s *serviceImpl) Standardize(ctx context.Context, req Request) (*Result, error) {
	return s.run(ctx, req, uuid.NewString())
}

func (s *serviceImpl) StandardizeBatch(ctx context.Context, reqs []Request) ([]*Result, error) {
	runID := uuid.NewString()
	results := make([]*Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range reqs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.run(gctx, reqs[i], runID)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				res = &Result{
					ID:        reqs[i].ID,
					RunID:     runID,
					Name:      reqs[i].Name,
					Input:     reqs[i].Input,
					Error:     err.Error(),
					ErrorCode: errors.GetCode(err).String(),
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "batch cancelled")
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	s.logger.Info("batch standardized",
		logging.String("run_id", runID),
		logging.Int("molecules", len(reqs)),
		logging.Int("failed", failed))
	return results, nil
}

func (s *serviceImpl) run(ctx context.Context, req Request, runID string) (res *Result, err error) {
	start := time.Now()
	ops, err := normalizeOperations(req.Operations, s.defaultOps)
	if err != nil {
		return nil, err
	}
	label := joinOperations(ops)
	defer func() {
		if s.metrics == nil {
			return
		}
		status := "ok"
		switch {
		case err != nil:
			status = "error"
		case res.Cached:
			status = "cached"
		}
		s.metrics.ObserveStandardization(label, status, time.Since(start))
	}()

	input := strings.TrimSpace(req.Input)
	if input == "" {
		return nil, errors.InvalidParam("input is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKey(s.fingerprint, label, input)
	if cached, ok := s.lookup(ctx, key); ok {
		cached.ID = req.ID
		cached.RunID = runID
		if req.Name != "" {
			cached.Name = req.Name
		}
		return cached, nil
	}

	mol, name, err := parseInput(req.Input)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		name = req.Name
	}

	rec := charge.NewRecorder()
	var sink charge.EventSink = rec
	if s.sink != nil {
		sink = charge.MultiSink{rec, s.sink}
	}

	res = &Result{
		ID:           req.ID,
		RunID:        runID,
		Name:         name,
		Input:        req.Input,
		Operations:   ops,
		ChargeBefore: mol.TotalCharge(),
	}
	for _, op := range ops {
		switch op {
		case OpReionize:
			err = s.reionizer.WithSink(sink).ReionizeInPlace(mol)
		case OpUncharge:
			err = s.uncharger.WithSink(sink).UnchargeInPlace(mol)
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, string(op)+" failed")
		}
	}
	res.ChargeAfter = mol.TotalCharge()
	res.SMILES = molecule.WriteSMILES(mol, molecule.WithCanonicalOrder())
	res.Events = rec.Events()

	frags := mol.Fragments()
	sizes := make([]int, len(frags))
	for i, f := range frags {
		sizes[i] = len(f)
	}
	s.logger.Debug("standardized molecule",
		logging.String("run_id", runID),
		logging.String("operations", label),
		logging.String("smiles", res.SMILES),
		logging.Ints("fragment_sizes", sizes),
		logging.Int("events", len(res.Events)),
		logging.Duration("elapsed", time.Since(start)))

	s.store(ctx, key, res)
	return res, nil
}

func (s *serviceImpl) lookup(ctx context.Context, key string) (*Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	var cached Result
	err := s.cache.Get(ctx, key, &cached)
	if s.metrics != nil {
		s.metrics.ObserveCache(err == nil)
	}
	if err != nil {
		if !errors.IsNotFound(err) {
			s.logger.Warn("result cache read failed", logging.String("key", key), logging.Err(err))
		}
		return nil, false
	}
	cached.Cached = true
	return &cached, true
}

func (s *serviceImpl) store(ctx context.Context, key string, res *Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, res, s.cacheTTL); err != nil {
		s.logger.Warn("result cache write failed", logging.String("key", key), logging.Err(err))
	}
}

func parseInput(input string) (*molecule.Molecule, string, error) {
	if molecule.IsMolBlock(input) {
		mol, err := molecule.ParseMolBlock(strings.NewReader(input))
		if err != nil {
			return nil, "", err
		}
		return mol, mol.Name, nil
	}
	input = strings.TrimSpace(input)
	mol, err := molecule.ParseSMILES(input)
	if err != nil {
		return nil, "", err
	}
	name := ""
	if fields := strings.Fields(input); len(fields) > 1 {
		name = strings.Join(fields[1:], " ")
	}
	return mol, name, nil
}

func normalizeOperations(ops, defaults []Operation) ([]Operation, error) {
	if len(ops) == 0 {
		ops = defaults
	}
	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		parsed, err := ParseOperation(string(op))
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

func joinOperations(ops []Operation) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = string(op)
	}
	return strings.Join(parts, "+")
}

// configFingerprint digests every setting that changes a result: the
// uncharger switches, the catalog pairs in rank order and the correction
// rules in application order.
func configFingerprint(r *charge.Reionizer, u *charge.Uncharger) string {
	h := sha256.New()
	fmt.Fprintf(h, "force=%t\x00canonical=%t\x00", u.ForceFullNeutralization(), u.CanonicalOrdering())
	for _, e := range r.Catalog().Entries() {
		fmt.Fprintf(h, "pair\x00%s\x00%s\x00%s\x00", e.Name, e.Acid, e.Base)
	}
	for _, cc := range r.Corrections() {
		fmt.Fprintf(h, "correction\x00%s\x00%s\x00%d\x00", cc.Name, cc.Pattern.String(), cc.Charge)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// cacheKey separates results produced under different configurations.
func cacheKey(fingerprint, operations, input string) string {
	sum := sha256.Sum256([]byte(fingerprint + "\x00" + operations + "\x00" + input))
	return "std:" + hex.EncodeToString(sum[:])
}
