package row

// Kind tags the result of processing one line.
type Kind int

const (
	SkippedHeader Kind = iota
	InvalidContent
	Updated
	ContentWarning
	RequestError
	TransportError
)

// String returns the kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case SkippedHeader:
		return "skipped_header"
	case InvalidContent:
		return "invalid_content"
	case Updated:
		return "updated"
	case ContentWarning:
		return "content_warning"
	case RequestError:
		return "request_error"
	case TransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// Fatal reports whether an outcome of this kind halts the run.
func (k Kind) Fatal() bool {
	return k == RequestError || k == TransportError
}

// Status is the console severity of an outcome.
type Status int

const (
	StatusInfo Status = iota
	StatusSuccess
	StatusWarn
	StatusError
)

// Status maps the kind onto its console severity.
func (k Kind) Status() Status {
	switch k {
	case Updated:
		return StatusSuccess
	case InvalidContent, ContentWarning:
		return StatusWarn
	case RequestError, TransportError:
		return StatusError
	default:
		return StatusInfo
	}
}

// Outcome is the tagged result of processing one line.
type Outcome struct {
	Kind    Kind
	Message string
}

// Fatal reports whether this outcome halts the run.
func (o Outcome) Fatal() bool {
	return o.Kind.Fatal()
}

// Outcome constructors.

func Header() Outcome {
	return Outcome{Kind: SkippedHeader, Message: "Skipping header"}
}

func Invalid() Outcome {
	return Outcome{Kind: InvalidContent, Message: "Invalid content"}
}

func Success() Outcome {
	return Outcome{Kind: Updated, Message: "Updated"}
}

func Warning(msg string) Outcome {
	return Outcome{Kind: ContentWarning, Message: msg}
}

func RequestFailure(msg string) Outcome {
	return Outcome{Kind: RequestError, Message: msg}
}

func TransportFailure(msg string) Outcome {
	return Outcome{Kind: TransportError, Message: msg}
}
