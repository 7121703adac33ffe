package config

const (
	DefaultTimeZone = "America/Santiago"

	// Batch-retention job: purge ingestion-batch audit rows older than this
	// many days, checked daily.
	DefaultRetentionSchedule  = "0 3 * * *"
	DefaultBatchRetentionDays = 365
)
