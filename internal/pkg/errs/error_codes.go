/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrUnsupportedMessageType indicates a WebSocket frame with an unknown type.
	ErrUnsupportedMessageType = 1008
)

// 2xxx: Room and Content Business Logic Errors
const (
	// ErrJoinDeclined indicates that the join gate rejected the request.
	ErrJoinDeclined = 2101

	// ErrNotInRoom indicates an action on a room the connection has not joined.
	ErrNotInRoom = 2103

	// ErrChatDeclined indicates that the chat gate rejected the message (e.g., blank text).
	ErrChatDeclined = 2201

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2202

	// ErrPeerDeclined indicates that the peer gate rejected the message.
	ErrPeerDeclined = 2301

	// ErrPeerNotFound indicates that the target of a peer message has no open connection.
	ErrPeerNotFound = 2302

	// ErrDecisionTimeout indicates that no gate decision was delivered in time.
	ErrDecisionTimeout = 2900
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrTokenInvalid indicates an unknown, released or expired connect token.
	ErrTokenInvalid = 3001

	// ErrSessionInvalid indicates that the session could not be resolved.
	ErrSessionInvalid = 3002

	// ErrUnauthorized indicates that the request carries no usable identity.
	ErrUnauthorized = 3003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrIdentifierExhausted indicates that no free guest ID or token could be generated.
	ErrIdentifierExhausted = 5001
)
