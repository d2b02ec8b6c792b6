package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/otabek-dev/taskhub/internal/token"
)

func refreshCookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == refreshCookie {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", refreshCookie)
	return nil
}

func TestRefreshCookie_SecureFlagFromConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := token.NewManager("a", "r", "e", time.Minute, time.Hour)
	pair := &token.Pair{AccessToken: "at", RefreshToken: "rt"}

	tests := []struct {
		name   string
		secure bool
	}{
		{"development", false},
		{"https deployment", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{tokens: tokens, log: zap.NewNop().Sugar(), secureCookies: tt.secure}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			s.setRefreshCookie(c, pair)

			ck := refreshCookieFrom(t, w)
			if ck.Secure != tt.secure {
				t.Errorf("set: Secure = %v, want %v", ck.Secure, tt.secure)
			}
			if !ck.HttpOnly {
				t.Error("set: cookie must be httpOnly")
			}
			if ck.MaxAge != int(tokens.RefreshTTL().Seconds()) {
				t.Errorf("set: MaxAge = %d, want %d", ck.MaxAge, int(tokens.RefreshTTL().Seconds()))
			}

			w = httptest.NewRecorder()
			c, _ = gin.CreateTestContext(w)
			s.clearRefreshCookie(c)

			ck = refreshCookieFrom(t, w)
			if ck.Secure != tt.secure {
				t.Errorf("clear: Secure = %v, want %v", ck.Secure, tt.secure)
			}
			if ck.MaxAge >= 0 {
				t.Errorf("clear: MaxAge = %d, want negative", ck.MaxAge)
			}
		})
	}
}
