/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses, WebSocket error frames and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:          {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:   {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:      {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:     {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:      {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUnsupportedMessageType: {Code: ErrUnsupportedMessageType, Message: "Unsupported message type: %s."},

	// 2xxx: Room and Content Business Logic Errors
	ErrJoinDeclined:          {Code: ErrJoinDeclined, Message: "You cannot join this room."},
	ErrNotInRoom:             {Code: ErrNotInRoom, Message: "You are not in this room."},
	ErrChatDeclined:          {Code: ErrChatDeclined, Message: "Message was not accepted."},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrPeerDeclined:          {Code: ErrPeerDeclined, Message: "Peer message was not accepted."},
	ErrPeerNotFound:          {Code: ErrPeerNotFound, Message: "User is not connected."},
	ErrDecisionTimeout:       {Code: ErrDecisionTimeout, Message: "Request timed out. Please try again."},

	// 3xxx: User, Session, and Security Errors
	ErrTokenInvalid:   {Code: ErrTokenInvalid, Message: "Connect token is invalid or expired.", Status: http.StatusUnauthorized},
	ErrSessionInvalid: {Code: ErrSessionInvalid, Message: "Session is invalid or expired.", Status: http.StatusUnauthorized},
	ErrUnauthorized:   {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:             {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrIdentifierExhausted: {Code: ErrIdentifierExhausted, Message: "Server is busy. Please try again.", Status: http.StatusServiceUnavailable},
}
