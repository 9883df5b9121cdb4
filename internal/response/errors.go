package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound           ErrCode = "NOT_FOUND"
	ErrTestNotFound       ErrCode = "TEST_NOT_FOUND"
	ErrTestNotDeliverable ErrCode = "TEST_NOT_DELIVERABLE"

	// ─── Access codes ──────────────────────────────────────────────────
	ErrCodeNotFound          ErrCode = "CODE_NOT_FOUND"
	ErrCodeExpired           ErrCode = "CODE_EXPIRED"
	ErrInvalidOrUsedCode     ErrCode = "INVALID_OR_USED_CODE"
	ErrCodeGenerationFailed  ErrCode = "CODE_GENERATION_FAILED"
	ErrUnknownProctorEvent   ErrCode = "UNKNOWN_PROCTOR_EVENT"
	ErrProctorStreamRejected ErrCode = "PROCTOR_STREAM_REJECTED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrTokenRequired:
		return "Authentication token required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."

	case ErrNotFound:
		return "Resource not found."
	case ErrTestNotDeliverable:
		return "This test cannot be taken yet."
	case ErrTestNotFound:
		return "Test not found."

	case ErrCodeNotFound:
		return "Invalid or used code."
	case ErrCodeExpired:
		return "Code expired."
	case ErrInvalidOrUsedCode:
		return "Invalid or already used code."
	case ErrCodeGenerationFailed:
		return "Could not generate a unique access code. Please try again."
	case ErrUnknownProctorEvent:
		return "Unknown proctoring event."
	case ErrProctorStreamRejected:
		return "Proctoring stream not allowed for this code."

	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File exceeds the size limit."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
