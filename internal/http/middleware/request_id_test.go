package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestIDPropagation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		inbound  string
		wantKept bool
	}{
		{"gateway id kept", "gw-7f3a2b.1", true},
		{"missing id replaced", "", false},
		{"oversized id replaced", strings.Repeat("a", 65), false},
		{"log-breaking id replaced", "abc\ndef", false},
		{"quoted id replaced", `ab"cd`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			r := gin.New()
			r.Use(RequestID())
			r.GET("/", func(c *gin.Context) {
				seen = GetRequestID(c)
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest("GET", "/", nil)
			if tt.inbound != "" {
				req.Header.Set(HeaderRequestID, tt.inbound)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if seen == "" {
				t.Fatal("no request id set on context")
			}
			if got := w.Header().Get(HeaderRequestID); got != seen {
				t.Errorf("response header = %q, context id = %q", got, seen)
			}
			if tt.wantKept && seen != tt.inbound {
				t.Errorf("inbound id %q replaced with %q", tt.inbound, seen)
			}
			if !tt.wantKept && seen == tt.inbound {
				t.Errorf("untrusted id %q kept", tt.inbound)
			}
		})
	}
}
