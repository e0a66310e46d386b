/*
Package req provides helper functions for request parsing and data binding.

It decodes JSON from HTTP request bodies and WebSocket frames, enforcing size
limits and strict field matching, and maps failures to application error codes.
*/
package req

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/errs"
)

// MaxBodySize is the maximum accepted size (64 KB) of a JSON request body.
const MaxBodySize int64 = 64 << 10

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}

// BindFrame binds a single JSON WebSocket frame to dst with the same rules as BindJSON.
func BindFrame(data []byte, dst any) *errs.CustomError {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
