package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSPAHandlerServesIndexForClientRoutes(t *testing.T) {
	t.Parallel()

	h := SPAHandler()
	for _, path := range []string{"/", "/dialogue/anything"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "/api/dialogue/turn") {
			t.Fatalf("%s: expected the chat page, got %q", path, w.Body.String())
		}
	}
}
