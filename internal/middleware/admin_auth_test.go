package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

const testAdminKey = "secret-admin-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

// adminRouter mounts a category maintenance route behind the admin key and
// records whether the handler ran.
func adminRouter(apiKey string, reached *bool) *gin.Engine {
	r := gin.New()
	admin := r.Group("/categories", AdminAuthMiddleware(apiKey))
	admin.DELETE("/:name", func(c *gin.Context) {
		*reached = true
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAdminAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "matching key",
			configured: testAdminKey,
			headers:    map[string]string{AdminKeyHeader: testAdminKey},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "header name is case insensitive",
			configured: testAdminKey,
			headers:    map[string]string{"x-admin-key": testAdminKey},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "wrong key",
			configured: testAdminKey,
			headers:    map[string]string{AdminKeyHeader: "guess"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_API_KEY",
		},
		{
			name:       "prefix of the key",
			configured: testAdminKey,
			headers:    map[string]string{AdminKeyHeader: "secret-admin"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_API_KEY",
		},
		{
			name:       "bearer token is not an admin key",
			configured: testAdminKey,
			headers:    map[string]string{"Authorization": "Bearer " + testAdminKey},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_API_KEY",
		},
		{
			name:       "no key configured",
			configured: "",
			headers:    map[string]string{AdminKeyHeader: ""},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "ADMIN_NOT_CONFIGURED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reached bool
			r := adminRouter(tt.configured, &reached)

			req := httptest.NewRequest(http.MethodDelete, "/categories/Phones", http.NoBody)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if reached != (tt.wantCode == "") {
				t.Errorf("handler reached = %v", reached)
			}
			if tt.wantCode == "" {
				return
			}
			errObj, ok := parseBody(t, rec)["error"].(map[string]interface{})
			if !ok {
				t.Fatalf("expected error object, got %s", rec.Body.String())
			}
			if errObj["code"] != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, errObj["code"])
			}
		})
	}
}
