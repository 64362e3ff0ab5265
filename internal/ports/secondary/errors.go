package secondary

// RequestError reports that the directory service was reached but did not accept
// the request: a non-200 status, an empty body where one is required, or a body
// that could not be parsed.
type RequestError struct {
	StatusCode int
	Msg        string
}

func (e *RequestError) Error() string { return e.Msg }

// TransportError reports that the directory service could not be reached at all.
type TransportError struct {
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	return "Failed to connect to OpenInfoMan host - " + e.Reason
}

func (e *TransportError) Unwrap() error { return e.Err }
