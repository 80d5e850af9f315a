package replaydto

// DomainError is the wire form of a replay failure.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Ply       int    `json:"ply,omitempty"`
	Token     string `json:"token,omitempty"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "replay error"
}

const (
	CodeParseError      = "parse_error"
	CodeResolutionError = "resolution_error"
	CodeBadRequest      = "bad_request"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal"
)
