package response

// Connection rejection codes surfaced to clients when a WebSocket
// handshake is refused. Clients match on these literals.
const (
	CodeNoToken      = "NoToken"
	CodeTokenExpired = "TokenExpired"
	CodeAuthError    = "AuthError"
)

// ErrorResponse is the JSON body for every error the API returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Reject builds the body for a refused connection. detail is optional and
// must never carry internal validation specifics.
func Reject(code, detail string) ErrorResponse {
	if detail == "" {
		return ErrorResponse{Error: code}
	}
	return ErrorResponse{Error: code + ": " + detail}
}
