package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	CodeOK            ErrorCode = "OK"
	CodeUnknown       ErrorCode = "COMMON_000"
	CodeInternal      ErrorCode = "COMMON_001"
	CodeInvalidParam  ErrorCode = "COMMON_002"
	CodeNotFound      ErrorCode = "COMMON_003"
	CodeConfiguration ErrorCode = "COMMON_004"
	CodeIO            ErrorCode = "COMMON_005"
)

// Rule table error codes.  All of these are fatal configuration errors
// raised while loading the rule table at startup.
const (
	CodeRuleInvalidPattern  ErrorCode = "RUL_001"
	CodeRuleInvalidPriority ErrorCode = "RUL_002"
	CodeRuleDuplicateName   ErrorCode = "RUL_003"
	CodeRuleTableRead       ErrorCode = "RUL_004"
	CodeRuleTableEmpty      ErrorCode = "RUL_005"
)

// Molecule error codes.
const (
	CodeMoleculeParseFailed    ErrorCode = "MOL_001"
	CodeMoleculeInvalidValence ErrorCode = "MOL_002"
	CodeMoleculeEmptyInput     ErrorCode = "MOL_003"
	CodeMoleculeWriteFailed    ErrorCode = "MOL_004"
)

// Scoring error codes.
const (
	CodeModelMissing       ErrorCode = "SCR_001"
	CodeModelLoadFailed    ErrorCode = "SCR_002"
	CodeModelDimension     ErrorCode = "SCR_003"
	CodeVectorizerNotReady ErrorCode = "SCR_004"
)

// Prediction pipeline error codes.
const (
	CodePredictionFailed ErrorCode = "PRD_001"
	CodeBatchAborted     ErrorCode = "PRD_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes for the
// prediction API.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	CodeInternal:      http.StatusInternalServerError,
	CodeInvalidParam:  http.StatusBadRequest,
	CodeNotFound:      http.StatusNotFound,
	CodeConfiguration: http.StatusInternalServerError,
	CodeIO:            http.StatusInternalServerError,

	CodeRuleInvalidPattern:  http.StatusInternalServerError,
	CodeRuleInvalidPriority: http.StatusInternalServerError,
	CodeRuleDuplicateName:   http.StatusInternalServerError,
	CodeRuleTableRead:       http.StatusInternalServerError,
	CodeRuleTableEmpty:      http.StatusInternalServerError,

	CodeMoleculeParseFailed:    http.StatusBadRequest,
	CodeMoleculeInvalidValence: http.StatusBadRequest,
	CodeMoleculeEmptyInput:     http.StatusBadRequest,
	CodeMoleculeWriteFailed:    http.StatusInternalServerError,

	CodeModelMissing:       http.StatusInternalServerError,
	CodeModelLoadFailed:    http.StatusInternalServerError,
	CodeModelDimension:     http.StatusInternalServerError,
	CodeVectorizerNotReady: http.StatusInternalServerError,

	CodePredictionFailed: http.StatusInternalServerError,
	CodeBatchAborted:     http.StatusInternalServerError,
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
// Unmapped codes fall back to 500.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsConfiguration reports whether the code belongs to the fatal startup
// configuration family (rule table, model loading, config validation).
func IsConfiguration(code ErrorCode) bool {
	switch code {
	case CodeConfiguration, CodeRuleInvalidPattern, CodeRuleInvalidPriority,
		CodeRuleDuplicateName, CodeRuleTableRead, CodeRuleTableEmpty,
		CodeModelLoadFailed:
		return true
	}
	return false
}
