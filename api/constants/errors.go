package constants

// ============================================================================
// AUTHENTICATION & SESSION ERRORS
// ============================================================================

const (
	ErrSessionExpired = "Your session has expired. Please login again"
	ErrUnauthorized   = "You are not authorized to perform this action"
	ErrUserNotFound   = "User not found in active sessions"
)

// ============================================================================
// VALIDATION ERRORS - Instruments
// ============================================================================

const (
	ErrInstrumentNotFound      = "Financial instrument not found in the catalog"
	ErrInstrumentCodeRequired  = "Instrument code is required"
	ErrInstrumentNameRequired  = "Instrument name is required to generate a code"
	ErrInstrumentCreateFailed  = "Failed to create instrument. Please check if the code already exists"
	ErrInstrumentUpdateFailed  = "Failed to update instrument. Please verify the instrument ID and try again"
	ErrInstrumentCodeExhausted = "Could not generate a unique instrument code"
)

// ============================================================================
// VALIDATION ERRORS - Classification records
// ============================================================================

const (
	ErrRecordNotFound       = "Classification record not found"
	ErrRecordCreateFailed   = "Failed to create classification record"
	ErrRecordUpdateFailed   = "Failed to update classification record"
	ErrReportDateRequired   = "Report date (fecha_informe) is required"
	ErrDuplicateRecord      = "A classification already exists for this instrument, report date and declaration number"
	ErrIntegrityRejection   = "Database rejected the record. Please verify the data and try again"
	ErrUnsupportedFormat    = "Unsupported file format. Allowed formats: .csv, .xlsx, .xls"
	ErrEmptyUpload          = "Uploaded file has no data rows"
	ErrTooManyRows          = "Uploaded file exceeds the maximum number of rows allowed"
	ErrUploadParse          = "Could not read the uploaded file. Please verify the format and try again"
)

// ============================================================================
// ROW-LEVEL MESSAGE TEMPLATES (batch error detail)
// ============================================================================

const (
	FmtRowError          = "Row %d: %s"
	FmtMissingField      = "missing required field %q"
	FmtInvalidValue      = "invalid value for %q: %q"
	FmtFactorOutOfRange  = "factor_%d out of range: %s (must be between 0 and 1)"
	FmtCriticalSumExceed = "sum of factors %d-%d is %s, must not exceed 1.00000000"
)
