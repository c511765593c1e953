package log

// Canonical field name constants for structured logging, kept narrow to
// what this pipeline actually emits.
const (
	FieldRunID     = "run_id"
	FieldEvent     = "event"
	FieldComponent = "component"

	FieldRecording = "recording"
	FieldKey       = "key"
	FieldStatus    = "status"
	FieldStage     = "stage"

	FieldPath = "path"
	FieldCuts = "cuts"
)
