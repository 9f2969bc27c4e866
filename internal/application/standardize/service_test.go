package standardize

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/AAriam/rdkit/internal/domain/charge"
	"github.com/AAriam/rdkit/internal/testutil"
	"github.com/AAriam/rdkit/pkg/errors"
)

// memoryCache is a JSON round-tripping ResultCache.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "cache miss")
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	c.sets++
	return nil
}

// MockResultCache is a mock implementation of ResultCache
type MockResultCache struct {
	mock.Mock
}

func (m *MockResultCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockResultCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

type recordingMetrics struct {
	mu       sync.Mutex
	statuses []string
	hits     int
	misses   int
}

func (m *recordingMetrics) ObserveStandardization(_ string, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *recordingMetrics) ObserveCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func newTestService(t *testing.T, opts ...Option) Service {
	t.Helper()
	cat, err := charge.DefaultAcidBaseCatalog()
	require.NoError(t, err)
	r, err := charge.NewReionizer(cat)
	require.NoError(t, err)
	svc, err := NewService(r, charge.NewUncharger(), testutil.NewMockLogger(), opts...)
	require.NoError(t, err)
	return svc
}

func kinds(events []charge.Event) []charge.EventKind {
	out := make([]charge.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestNewService_RequiresComponents(t *testing.T) {
	_, err := NewService(nil, charge.NewUncharger(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStandardizerNotReady))
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation(" Reionize ")
	require.NoError(t, err)
	assert.Equal(t, OpReionize, op)

	_, err = ParseOperation("tautomerize")
	assert.True(t, errors.IsCode(err, errors.ErrCodeOperationUnsupported))
}

func TestStandardize_DefaultOperations(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Standardize(context.Background(), Request{ID: "m1", Input: testutil.AcidAlkoxide})
	require.NoError(t, err)
	assert.Equal(t, "m1", res.ID)
	assert.Equal(t, DefaultOperations, res.Operations)
	assert.Equal(t, -1, res.ChargeBefore)
	assert.Equal(t, 0, res.ChargeAfter)
	assert.Equal(t, []charge.EventKind{charge.EventProtonMoved, charge.EventNegativeNeutralized}, kinds(res.Events))
	assert.NotEmpty(t, res.SMILES)
	assert.False(t, res.Cached)
	assert.True(t, res.Changed())

	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
}

func TestStandardize_SingleOperation(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Standardize(context.Background(), Request{Input: "C[NH3+]", Operations: []Operation{OpUncharge}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChargeBefore)
	assert.Equal(t, 0, res.ChargeAfter)
	assert.Equal(t, []charge.EventKind{charge.EventPositiveNeutralized}, kinds(res.Events))

	res, err = svc.Standardize(context.Background(), Request{Input: testutil.Quaternary, Operations: []Operation{"reionize"}})
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, 1, res.ChargeAfter)
}

func TestStandardize_ConfiguredDefaultOperations(t *testing.T) {
	svc := newTestService(t, WithDefaultOperations([]Operation{OpUncharge}))

	res, err := svc.Standardize(context.Background(), Request{Input: "C[NH3+]"})
	require.NoError(t, err)
	assert.Equal(t, []Operation{OpUncharge}, res.Operations)

	res, err = svc.Standardize(context.Background(), Request{Input: "C[NH3+]", Operations: []Operation{OpReionize}})
	require.NoError(t, err)
	assert.Equal(t, []Operation{OpReionize}, res.Operations)
	assert.Equal(t, 1, res.ChargeAfter)
}

func TestStandardize_Molfile(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Standardize(context.Background(), Request{Input: testutil.AcetateMolBlock, Operations: []Operation{OpUncharge}})
	require.NoError(t, err)
	assert.Equal(t, "acetate", res.Name)
	assert.Equal(t, -1, res.ChargeBefore)
	assert.Equal(t, 0, res.ChargeAfter)
}

func TestStandardize_Names(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Standardize(context.Background(), Request{Input: "C[NH3+] methyl ammonium"})
	require.NoError(t, err)
	assert.Equal(t, "methyl ammonium", res.Name)

	res, err = svc.Standardize(context.Background(), Request{Name: "override", Input: "C[NH3+] methyl ammonium"})
	require.NoError(t, err)
	assert.Equal(t, "override", res.Name)
}

func TestStandardize_InvalidRequests(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Standardize(ctx, Request{Input: "  "})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidParam))

	_, err = svc.Standardize(ctx, Request{Input: "C1CC"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES))

	_, err = svc.Standardize(ctx, Request{Input: "CC", Operations: []Operation{"neutralize"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeOperationUnsupported))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.Standardize(cancelled, Request{Input: "CC"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStandardize_ResultCache(t *testing.T) {
	cache := newMemoryCache()
	metrics := &recordingMetrics{}
	svc := newTestService(t, WithResultCache(cache, time.Minute), WithMetrics(metrics))
	ctx := context.Background()

	first, err := svc.Standardize(ctx, Request{Input: testutil.GlycineZwitterion})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Standardize(ctx, Request{ID: "again", Input: testutil.GlycineZwitterion})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "again", second.ID)
	assert.Equal(t, first.SMILES, second.SMILES)
	assert.Equal(t, kinds(first.Events), kinds(second.Events))
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, 1, cache.sets)

	// different operations are cached separately
	third, err := svc.Standardize(ctx, Request{Input: testutil.GlycineZwitterion, Operations: []Operation{OpReionize}})
	require.NoError(t, err)
	assert.False(t, third.Cached)

	assert.Equal(t, []string{"ok", "cached", "ok"}, metrics.statuses)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 2, metrics.misses)
}

func TestStandardize_CacheFailuresAreNotFatal(t *testing.T) {
	cache := new(MockResultCache)
	cacheErr := errors.New(errors.ErrCodeCacheError, "connection refused")
	cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(cacheErr)
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, 5*time.Minute).Return(cacheErr)

	cat, err := charge.DefaultAcidBaseCatalog()
	require.NoError(t, err)
	r, err := charge.NewReionizer(cat)
	require.NoError(t, err)
	logger := testutil.NewMockLogger()
	svc, err := NewService(r, charge.NewUncharger(), logger, WithResultCache(cache, 5*time.Minute))
	require.NoError(t, err)

	res, err := svc.Standardize(context.Background(), Request{Input: "C[NH3+]"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChargeAfter)
	assert.True(t, logger.HasMessage("warn", "result cache read failed"))
	assert.True(t, logger.HasMessage("warn", "result cache write failed"))
	cache.AssertExpectations(t)
}

func TestStandardize_ForwardsEvents(t *testing.T) {
	rec := charge.NewRecorder()
	svc := newTestService(t, WithEventSink(rec))

	_, err := svc.Standardize(context.Background(), Request{Input: testutil.GlycineZwitterion})
	require.NoError(t, err)
	_, err = svc.Standardize(context.Background(), Request{Input: "C[NH3+]"})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Count(charge.EventPositiveNeutralized))
}

func TestStandardizeBatch(t *testing.T) {
	svc := newTestService(t, WithConcurrency(2))
	reqs := []Request{
		{ID: "a", Input: testutil.GlycineZwitterion},
		{ID: "b", Input: "C1CC"},
		{ID: "c", Input: "C[NH3+]"},
		{ID: "d", Input: testutil.Nitrate},
	}

	results, err := svc.StandardizeBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))
	for i, res := range results {
		assert.Equal(t, reqs[i].ID, res.ID)
		assert.Equal(t, results[0].RunID, res.RunID)
	}
	assert.Empty(t, results[0].Error)
	assert.Equal(t, string(errors.ErrCodeMoleculeInvalidSMILES), results[1].ErrorCode)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, 0, results[2].ChargeAfter)
	assert.Equal(t, 0, results[3].ChargeAfter)
}

func TestStandardizeBatch_Cancelled(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := svc.StandardizeBatch(ctx, []Request{{Input: "CC"}, {Input: "CCO"}})
	assert.Nil(t, results)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCatalog(t *testing.T) {
	svc := newTestService(t)
	entries := svc.Catalog()
	require.Len(t, entries, 31)
	assert.Equal(t, "-OSO3H", entries[0].Name)
}

func TestStandardize_SharedCacheSeparatesConfigurations(t *testing.T) {
	cache := newMemoryCache()
	ctx := context.Background()
	req := Request{Input: "CC(=O)O.[Na]", Operations: []Operation{OpReionize}}

	withDefaults := newTestService(t, WithResultCache(cache, time.Minute))
	corrected, err := withDefaults.Standardize(ctx, req)
	require.NoError(t, err)
	assert.False(t, corrected.Cached)

	cat, err := charge.DefaultAcidBaseCatalog()
	require.NoError(t, err)
	r, err := charge.NewReionizer(cat, charge.WithChargeCorrections(nil))
	require.NoError(t, err)
	withoutCorrections, err := NewService(r, charge.NewUncharger(), testutil.NewMockLogger(), WithResultCache(cache, time.Minute))
	require.NoError(t, err)

	plain, err := withoutCorrections.Standardize(ctx, req)
	require.NoError(t, err)
	assert.False(t, plain.Cached)
	assert.Equal(t, "CC(=O)O.[Na]", plain.SMILES)
	assert.NotEqual(t, corrected.SMILES, plain.SMILES)
	assert.Equal(t, 2, cache.sets)
}

func TestConfigFingerprint(t *testing.T) {
	entries := charge.DefaultAcidBaseEntries()
	cat, err := charge.NewAcidBaseCatalog(entries)
	require.NoError(t, err)
	base, err := charge.NewReionizer(cat)
	require.NoError(t, err)
	u := charge.NewUncharger()
	assert.Equal(t, configFingerprint(base, u), configFingerprint(base, charge.NewUncharger()))

	// same number of pairs, different ranking
	swapped := append([]charge.AcidBaseEntry(nil), entries...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	swappedCat, err := charge.NewAcidBaseCatalog(swapped)
	require.NoError(t, err)
	reordered, err := charge.NewReionizer(swappedCat)
	require.NoError(t, err)
	assert.NotEqual(t, configFingerprint(base, u), configFingerprint(reordered, u))

	cc, err := charge.NewChargeCorrection("[Cl]", "[Cl;X0+0]", -1)
	require.NoError(t, err)
	fewer, err := charge.NewReionizer(cat, charge.WithChargeCorrections([]charge.ChargeCorrection{cc}))
	require.NoError(t, err)
	assert.NotEqual(t, configFingerprint(base, u), configFingerprint(fewer, u))

	assert.NotEqual(t, configFingerprint(base, u), configFingerprint(base, charge.NewUncharger(charge.WithForceFullNeutralization(true))))
}

func TestStandardize_LogsFragmentSizes(t *testing.T) {
	cat, err := charge.DefaultAcidBaseCatalog()
	require.NoError(t, err)
	r, err := charge.NewReionizer(cat)
	require.NoError(t, err)
	logger := testutil.NewMockLogger()
	svc, err := NewService(r, charge.NewUncharger(), logger)
	require.NoError(t, err)

	_, err = svc.Standardize(context.Background(), Request{Input: "CC(=O)O.[Na]"})
	require.NoError(t, err)

	sizes, ok := logger.Field("standardized molecule", "fragment_sizes")
	require.True(t, ok)
	assert.Equal(t, []int{4, 1}, sizes)
}
