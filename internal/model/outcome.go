package model

// FailureKind is the coarse classification of a failed download
type FailureKind string

const (
	FailureFormatUnavailable     FailureKind = "FormatUnavailable"
	FailureNoMetadataReturned    FailureKind = "NoMetadataReturned"
	FailureExtractionFailed      FailureKind = "ExtractionFailed"
	FailureGenericDownloadFailed FailureKind = "GenericDownloadFailed"
	FailureUnexpected            FailureKind = "Unexpected"
)

// Failure is the failure branch of an Outcome. Message is localized and meant
// for users; the engine cause is only reachable through Unwrap.
type Failure struct {
	Kind    FailureKind
	Message string
	cause   error
}

// NewFailure creates a failure keeping cause for logging and errors.Is
func NewFailure(kind FailureKind, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, cause: cause}
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Message
}

// Unwrap returns the underlying engine error, if any
func (f *Failure) Unwrap() error {
	return f.cause
}

// Outcome is the terminal result of one download request
type Outcome struct {
	FilePath string
	Failure  *Failure
}

// Succeeded reports whether the outcome carries a file path
func (o Outcome) Succeeded() bool {
	return o.Failure == nil
}

// ProgressEvent is a normalized progress notification
type ProgressEvent struct {
	Percent float64 // 0 to 100
	Message string
}

// Event is a single element of an orchestration stream: zero or more
// progress events followed by exactly one outcome.
type Event struct {
	Progress *ProgressEvent
	Outcome  *Outcome
}

// IsTerminal reports whether the event carries the outcome
func (e Event) IsTerminal() bool {
	return e.Outcome != nil
}
