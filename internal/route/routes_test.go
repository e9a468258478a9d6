package route

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"faceattend/internal/config"
	"faceattend/internal/logger"
	"faceattend/internal/service/recognition"
)

func TestSetupRoutes_ToleranceMethods(t *testing.T) {
	matcher := recognition.NewMatcher(0.6)
	mux := SetupRoutes(context.Background(), Services{
		Matcher: matcher,
		Gallery: recognition.NewGallery(0, logger.Discard()),
	}, &config.Config{AllowRemote: true}, logger.Discard())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tolerance", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tolerance?value=0.5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.5, matcher.Tolerance())

	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, "/api/tolerance?value=0.7", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
	assert.Equal(t, 0.5, matcher.Tolerance())
}
