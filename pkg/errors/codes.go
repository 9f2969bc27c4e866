package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
// Codes are grouped by module prefix (COMMON, MOL, STD).
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"

	// ErrCodeInvalidParam is the bad-request code under the name the
	// domain packages use for rejected arguments.
	ErrCodeInvalidParam = ErrCodeBadRequest
)

// Aliases used by the factory helpers.
const (
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
)

// Molecule Module Error Codes
const (
	ErrCodeMoleculeInvalidSMILES ErrorCode = "MOL_001"
	ErrCodeMoleculeInvalidFormat ErrorCode = "MOL_003"
	ErrCodeMoleculeParsingFailed ErrorCode = "MOL_006"
	ErrCodeAtomIndexOutOfRange   ErrorCode = "MOL_016"
)

// Standardization Module Error Codes
const (
	ErrCodePatternCompileFailed ErrorCode = "STD_001"
	ErrCodeCatalogLoadFailed    ErrorCode = "STD_002"
	ErrCodeCatalogInvalid       ErrorCode = "STD_003"
	ErrCodeStandardizerNotReady ErrorCode = "STD_004"
	ErrCodeOperationUnsupported ErrorCode = "STD_005"
	ErrCodeCorrectionLoadFailed ErrorCode = "STD_006"
)

// ErrorCodeHTTPStatus maps each ErrorCode to its HTTP status.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeMoleculeInvalidSMILES: http.StatusBadRequest,
	ErrCodeMoleculeInvalidFormat: http.StatusBadRequest,
	ErrCodeMoleculeParsingFailed: http.StatusUnprocessableEntity,
	ErrCodeAtomIndexOutOfRange:   http.StatusBadRequest,

	ErrCodePatternCompileFailed: http.StatusUnprocessableEntity,
	ErrCodeCatalogLoadFailed:    http.StatusInternalServerError,
	ErrCodeCatalogInvalid:       http.StatusUnprocessableEntity,
	ErrCodeStandardizerNotReady: http.StatusServiceUnavailable,
	ErrCodeOperationUnsupported: http.StatusBadRequest,
	ErrCodeCorrectionLoadFailed: http.StatusInternalServerError,
}

// ErrorCodeMessage maps each ErrorCode to its default message.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeCacheError:         "cache error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeMoleculeInvalidSMILES: "invalid SMILES string",
	ErrCodeMoleculeInvalidFormat: "invalid molecule format",
	ErrCodeMoleculeParsingFailed: "failed to parse molecule",
	ErrCodeAtomIndexOutOfRange:   "atom index out of range",

	ErrCodePatternCompileFailed: "failed to compile SMARTS pattern",
	ErrCodeCatalogLoadFailed:    "failed to load acid/base catalog",
	ErrCodeCatalogInvalid:       "invalid acid/base catalog",
	ErrCodeStandardizerNotReady: "standardizer not initialized",
	ErrCodeOperationUnsupported: "unsupported standardization operation",
	ErrCodeCorrectionLoadFailed: "failed to load charge corrections",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}
