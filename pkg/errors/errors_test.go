package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAriam/rdkit/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"invalid smiles", errors.ErrCodeMoleculeInvalidSMILES, "unclosed ring 1"},
		{"pattern", errors.ErrCodePatternCompileFailed, "unbalanced bracket"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeCatalogLoadFailed, "open catalog")
	assert.Equal(t, "[STD_002] open catalog", ae.Error())

	withDetail := ae.WithDetail("path=/tmp/x.tsv")
	assert.Equal(t, "[STD_002] open catalog: path=/tmp/x.tsv", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")

	wrapped := errors.Wrap(stderrors.New("no such file"), errors.ErrCodeCatalogLoadFailed, "open catalog")
	assert.Equal(t, "[STD_002] open catalog: no such file", wrapped.Error())
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("root cause")
	ae := errors.Wrap(root, errors.ErrCodeCatalogLoadFailed, "load")

	assert.True(t, stderrors.Is(ae, root))
	assert.Equal(t, root, stderrors.Unwrap(ae))
}

func TestWrap_UnknownKeepsOriginalCode(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodePatternCompileFailed, "bad smarts")
	outer := errors.Wrap(inner, errors.CodeUnknown, "build catalog")

	assert.Equal(t, errors.ErrCodePatternCompileFailed, outer.Code)
}

func TestIsCode_TraversesForeignWrappers(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeMoleculeInvalidSMILES, "bad")
	outer := fmt.Errorf("parse input: %w", inner)

	assert.True(t, errors.IsCode(outer, errors.ErrCodeMoleculeInvalidSMILES))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeCatalogInvalid))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeCatalogInvalid))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeStandardizerNotReady, errors.GetCode(errors.NotReady("nil catalog")))
	assert.True(t, errors.IsNotFound(errors.NotFound("missing")))
}

func TestWithDetail_NilReceiver(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestHTTPStatusForCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatusForCode(errors.ErrCodeMoleculeInvalidSMILES))
	assert.Equal(t, http.StatusServiceUnavailable, errors.HTTPStatusForCode(errors.ErrCodeStandardizerNotReady))
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatusForCode(errors.ErrorCode("NOPE_1")))
}

func TestDefaultMessageForCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown error", errors.DefaultMessageForCode(errors.ErrorCode("X")))
}
