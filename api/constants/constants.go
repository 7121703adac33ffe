package constants

// Common error messages
const (
	ErrInvalidSession     = "invalid user_id or session"
	ErrInvalidJSON        = "invalid json or missing fields"
	ErrMissingUserID      = "Missing or invalid user_id in body"
	ErrUserIDRequired     = "user_id required"
	ErrDB                 = "DB error"
	ErrInvalidRequestBody = "Invalid request body"
	ErrPleaseLogin        = "Please login to continue."
	ErrMethodNotAllowed   = "Method Not Allowed"
)

// Content Types
const (
	ContentTypeJSON      = "application/json"
	ContentTypeMultipart = "multipart/form-data"
	ContentTypeText      = "Content-Type"
)

// Common request/response keys
const (
	KeyUserID    = "user_id"
	ValueSuccess = "success"
	ValueError   = "error"
)

// Date formats
const (
	DateTimeFormat = "2006-01-02 15:04:05"
	DateFormat     = "2006-01-02"
	DateFormatAlt  = "02-01-2006"
	DateFormatISO  = "2006-01-02T15:04:05"
)

// Factor engine defaults. The classification record carries one factor per
// index in [FactorFirstIndex, FactorLastIndex]; the subset bounded by the
// sum rule is [CriticalFirstIndex, CriticalLastIndex]. Overridable per
// service config (services.yaml).
const (
	FactorFirstIndex   = 8
	FactorLastIndex    = 37
	CriticalFirstIndex = 8
	CriticalLastIndex  = 16

	// FactorPrecision is the number of decimal places factors are rounded
	// to, half-up.
	FactorPrecision = 8

	// LegacyDivisor converts the legacy scalar pair: factor = monto / LegacyDivisor.
	LegacyDivisor = 1000000
)

// Upload limits
const (
	MaxUploadBytes = 32 << 20
	MaxUploadRows  = 50000
)

// Batch states (wire-stable, matching the persisted audit schema)
const (
	BatchProcessing = "PROCESANDO"
	BatchSuccess    = "EXITOSO"
	BatchPartial    = "PARCIAL"
	BatchFailed     = "FALLIDO"
)

// Entry methods for the legacy scalar pair
const (
	EntryByAmount = "MONTO"
	EntryByFactor = "FACTOR"
)

// Column names recognized in uploaded tabular files
const (
	ColInstrumentCode = "codigo_instrumento"
	ColInstrumentName = "nombre_instrumento"
	ColInstrumentType = "tipo_instrumento"
	ColReportDate     = "fecha_informe"
	ColDeclaration    = "numero_dj"
	ColAmount         = "monto"
	ColFactor         = "factor"
	ColEntryMethod    = "metodo_ingreso"
	ColObservations   = "observaciones"
	FactorColPrefix   = "factor_"
	AmountColPrefix   = "monto_"
)

// DefaultInstrumentType is assigned when ingestion creates an instrument
// the row references but the catalog does not know yet.
const DefaultInstrumentType = "Otro"

// SystemActor labels audit entries written by background operations that
// have no originating user session.
const SystemActor = "SYSTEM"
