package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"
)

// Aliases used pervasively at call sites.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")

	CodeDatabaseError = ErrCodeDatabaseError
	CodeCacheError    = ErrCodeCacheError
	CodeStorageError  = ErrCodeInternal
)

// Worker Invocation Error Codes
//
// These classify the outcome of one isolated analysis-worker process:
// spawn failures surface immediately, runtime failures carry the exit code
// and captured diagnostics, and protocol failures mark structured tasks
// whose output could not be parsed as a single JSON value.
const (
	ErrCodeWorkerSpawn     ErrorCode = "WRK_001"
	ErrCodeWorkerRuntime   ErrorCode = "WRK_002"
	ErrCodeWorkerProtocol  ErrorCode = "WRK_003"
	ErrCodeWorkerTimeout   ErrorCode = "WRK_004"
	ErrCodeTaskUnknown     ErrorCode = "WRK_005"
	ErrCodeWorkerSaturated ErrorCode = "WRK_006"
)

// Analysis Pipeline Error Codes
const (
	ErrCodeExtractionFailed     ErrorCode = "ANA_001"
	ErrCodeDetailsFailed        ErrorCode = "ANA_002"
	ErrCodeSummaryFailed        ErrorCode = "ANA_003"
	ErrCodeContradictionFailed  ErrorCode = "ANA_004"
	ErrCodeClassificationFailed ErrorCode = "ANA_005"
	ErrCodeEvidenceStaging      ErrorCode = "ANA_006"
)

// Entity Matching Error Codes
const (
	ErrCodeRecordStoreLoad  ErrorCode = "MAT_001"
	ErrCodeRecordStoreEmpty ErrorCode = "MAT_002"
	ErrCodeThresholdInvalid ErrorCode = "MAT_003"
	ErrCodeMatchGraphFailed ErrorCode = "MAT_004"
	ErrCodeSimilarityFailed ErrorCode = "MAT_005"
)

// Knowledge Retrieval Error Codes
//
// All of these denote external-dependency failures (embedding model, LLM,
// web search, vector index) and are deliberately distinct from data-shaped
// problems such as ErrCodeValidation.
const (
	ErrCodeEmbeddingFailed   ErrorCode = "KB_001"
	ErrCodeIndexUnavailable  ErrorCode = "KB_002"
	ErrCodeGenerationFailed  ErrorCode = "KB_003"
	ErrCodeWebSearchFailed   ErrorCode = "KB_004"
	ErrCodeCorpusUnavailable ErrorCode = "KB_005"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeWorkerSpawn:     http.StatusServiceUnavailable,
	ErrCodeWorkerRuntime:   http.StatusInternalServerError,
	ErrCodeWorkerProtocol:  http.StatusBadGateway,
	ErrCodeWorkerTimeout:   http.StatusGatewayTimeout,
	ErrCodeTaskUnknown:     http.StatusBadRequest,
	ErrCodeWorkerSaturated: http.StatusTooManyRequests,

	ErrCodeExtractionFailed:     http.StatusInternalServerError,
	ErrCodeDetailsFailed:        http.StatusInternalServerError,
	ErrCodeSummaryFailed:        http.StatusInternalServerError,
	ErrCodeContradictionFailed:  http.StatusInternalServerError,
	ErrCodeClassificationFailed: http.StatusInternalServerError,
	ErrCodeEvidenceStaging:      http.StatusBadGateway,

	ErrCodeRecordStoreLoad:  http.StatusInternalServerError,
	ErrCodeRecordStoreEmpty: http.StatusNotFound,
	ErrCodeThresholdInvalid: http.StatusBadRequest,
	ErrCodeMatchGraphFailed: http.StatusInternalServerError,
	ErrCodeSimilarityFailed: http.StatusInternalServerError,

	ErrCodeEmbeddingFailed:   http.StatusServiceUnavailable,
	ErrCodeIndexUnavailable:  http.StatusServiceUnavailable,
	ErrCodeGenerationFailed:  http.StatusServiceUnavailable,
	ErrCodeWebSearchFailed:   http.StatusBadGateway,
	ErrCodeCorpusUnavailable: http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeWorkerSpawn:     "worker process could not be started",
	ErrCodeWorkerRuntime:   "worker process exited with an error",
	ErrCodeWorkerProtocol:  "worker output violated the task protocol",
	ErrCodeWorkerTimeout:   "worker invocation timed out",
	ErrCodeTaskUnknown:     "unknown task identifier",
	ErrCodeWorkerSaturated: "worker invocation limit reached",

	ErrCodeExtractionFailed:     "evidence extraction failed",
	ErrCodeDetailsFailed:        "incident detail extraction failed",
	ErrCodeSummaryFailed:        "narrative summary generation failed",
	ErrCodeContradictionFailed:  "contradiction analysis failed",
	ErrCodeClassificationFailed: "priority classification failed",
	ErrCodeEvidenceStaging:      "evidence object staging failed",

	ErrCodeRecordStoreLoad:  "failed to load entity record store",
	ErrCodeRecordStoreEmpty: "entity record store is empty",
	ErrCodeThresholdInvalid: "invalid similarity threshold",
	ErrCodeMatchGraphFailed: "failed to persist match graph",
	ErrCodeSimilarityFailed: "similarity matching failed",

	ErrCodeEmbeddingFailed:   "text embedding backend failed",
	ErrCodeIndexUnavailable:  "knowledge index unavailable",
	ErrCodeGenerationFailed:  "answer generation backend failed",
	ErrCodeWebSearchFailed:   "web search fallback failed",
	ErrCodeCorpusUnavailable: "reference corpus unavailable",
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

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
