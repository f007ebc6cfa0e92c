package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ntalhaozcandev/basic-ecom-backend/internal/auth"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	verifier := auth.NewStaticVerifier(map[string]auth.Identity{
		"user-token":  {UserID: "u1", Role: auth.RoleUser},
		"admin-token": {UserID: "a1", Role: auth.RoleAdmin},
	})

	r := gin.New()
	authed := r.Group("", RequireAuth(verifier))
	authed.GET("/whoami", func(c *gin.Context) {
		respond(c, http.StatusOK, "", callerIdentity(c))
	})
	authed.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		respond(c, http.StatusOK, "", nil)
	})
	return r
}

func doRequest(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := testRouter()

	w := doRequest(r, "/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, "/whoami", "wrong-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(r, "/whoami", "user-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u1")
}

func TestRequireAuthRejectsMalformedHeader(t *testing.T) {
	r := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	r := testRouter()

	w := doRequest(r, "/admin", "user-token")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, "/admin", "admin-token")
	assert.Equal(t, http.StatusOK, w.Code)
}
