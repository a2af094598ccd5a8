package constants

// BatchStatus is the lifecycle state of an upload batch.
type BatchStatus string

// Stable values (exposed as-is over the API).
const (
	BatchStatusQueued    BatchStatus = "QUEUED"    // accepted, waiting for the worker
	BatchStatusRunning   BatchStatus = "RUNNING"   // files are being extracted
	BatchStatusSucceeded BatchStatus = "SUCCEEDED" // every file extracted and committed
	BatchStatusFailed    BatchStatus = "FAILED"    // aborted; nothing from the batch committed
)

// Terminal reports whether no further transitions are expected.
func (s BatchStatus) Terminal() bool {
	return s == BatchStatusSucceeded || s == BatchStatusFailed
}
