package resp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/errs"
)

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	middleware.RequestID(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	return rec
}

func TestRespondSuccess(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) {
		RespondSuccess(w, r, map[string]int{"n": 1})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Code)
	assert.Equal(t, "success", body.Message)
	assert.NotEmpty(t, body.RequestID)
	assert.Equal(t, map[string]any{"n": float64(1)}, body.Data)
}

func TestRespondError(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, r, errs.NewError(errs.ErrTokenInvalid))
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errs.ErrTokenInvalid, body.Code)
	assert.Nil(t, body.Data)
}

func TestRespondError_NilIsUnknown(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) {
		RespondError(w, r, nil)
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRespondJSON_UnencodablePayload(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, r, http.StatusOK, make(chan int))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
