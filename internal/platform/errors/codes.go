// Package errors provides structured error handling for IronLog components.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Exercise validation errors
	CodeExerciseNameTooShort        Code = "EXERCISE_NAME_TOO_SHORT"
	CodeExerciseInvalidCategory     Code = "EXERCISE_INVALID_CATEGORY"
	CodeExerciseInvalidSubcategory  Code = "EXERCISE_INVALID_SUBCATEGORY"
	CodeExerciseSubcategoryMismatch Code = "EXERCISE_SUBCATEGORY_MISMATCH"
	CodeExerciseSetsTooSmall        Code = "EXERCISE_SETS_TOO_SMALL"
	CodeExerciseRepsTooSmall        Code = "EXERCISE_REPS_TOO_SMALL"
	CodeExerciseNegativeWeight      Code = "EXERCISE_NEGATIVE_WEIGHT"
	CodeExerciseDateMissing         Code = "EXERCISE_DATE_MISSING"
	CodeExerciseIDMissing           Code = "EXERCISE_ID_MISSING"

	// Local store errors
	CodeLocalDataCorrupt Code = "LOCAL_DATA_CORRUPT"
	CodeLocalWriteFailed Code = "LOCAL_WRITE_FAILED"

	// Remote store errors
	CodeRemoteUnavailable  Code = "REMOTE_UNAVAILABLE"
	CodeRemoteDeleteFailed Code = "REMOTE_DELETE_FAILED"
	CodeRemoteInsertFailed Code = "REMOTE_INSERT_FAILED"

	// Record set errors
	CodeIndexOutOfRange Code = "INDEX_OUT_OF_RANGE"

	// Auth errors
	CodeAuthFailed       Code = "AUTH_FAILED"
	CodeAuthTokenInvalid Code = "AUTH_TOKEN_INVALID"
	CodeAuthTokenExpired Code = "AUTH_TOKEN_EXPIRED"
	CodeAuthEmailTaken   Code = "AUTH_EMAIL_TAKEN"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps the code to an HTTP status for API responses.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeExerciseNameTooShort,
		CodeExerciseInvalidCategory,
		CodeExerciseInvalidSubcategory,
		CodeExerciseSubcategoryMismatch,
		CodeExerciseSetsTooSmall,
		CodeExerciseRepsTooSmall,
		CodeExerciseNegativeWeight,
		CodeExerciseDateMissing,
		CodeExerciseIDMissing,
		CodeIndexOutOfRange:
		return http.StatusBadRequest
	case CodeAuthFailed, CodeAuthTokenInvalid, CodeAuthTokenExpired:
		return http.StatusUnauthorized
	case CodeAuthEmailTaken:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRemoteUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
