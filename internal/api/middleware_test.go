package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdehaas/chatwire/internal/testutil"
)

func Test_errorHandler(t *testing.T) {
	t.Run("passes requests through", func(t *testing.T) {
		app := &ChatApp{log: testutil.TestLogger(t)}

		h := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code, "expected handler response to pass through")
	})

	t.Run("recovers from panics", func(t *testing.T) {
		app := &ChatApp{log: testutil.TestLogger(t)}

		h := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(errors.New("boom"))
		}))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected 500 after panic")
		assert.Equal(t, "close", rr.Header().Get("Connection"))

		var resp ApiError
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("recovers from non-error panics", func(t *testing.T) {
		app := &ChatApp{log: testutil.TestLogger(t)}

		h := app.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected 500 after panic")
	})
}
