package relay

// ErrorKind classifies a failed query.
type ErrorKind string

// Error kinds
const (
	KindNone              ErrorKind = ""
	KindMissingCredential ErrorKind = "missing_credential"
	KindHTTPStatus        ErrorKind = "http_status"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindTransport         ErrorKind = "transport"
)

// ErrorPrefix marks failed answers in the plain-text rendering.
const ErrorPrefix = "ERROR: "

// Result is either a successful answer (OK, Value) or a failure (Kind, Message).
type Result struct {
	OK      bool      `json:"ok"`
	Value   string    `json:"value,omitempty"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Success wraps an answer.
func Success(value string) Result {
	return Result{OK: true, Value: value}
}

// Failure wraps an error of the given kind.
func Failure(kind ErrorKind, message string) Result {
	return Result{Kind: kind, Message: message}
}

// Answer renders the result as display text; failures carry ErrorPrefix.
func (r Result) Answer() string {
	if r.OK {
		return r.Value
	}
	return ErrorPrefix + r.Message
}
