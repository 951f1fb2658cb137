package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func middlewareRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Middleware(svc), func(c *gin.Context) {
		id, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	return r
}

func issueToken(t *testing.T, svc *Service, user *User) string {
	t.Helper()
	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email:    user.Email,
		Password: "correct horse",
	})
	require.NoError(t, err)
	return resp.Token
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	user := hashedUser(t, "ada@example.com", "correct horse")
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)
	svc := newTestService(repo)

	router := middlewareRouter(svc)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, svc, user))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.String())
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	user := hashedUser(t, "ada@example.com", "correct horse")
	repo := new(MockRepository)
	repo.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)
	svc := newTestService(repo)

	router := middlewareRouter(svc)
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+issueToken(t, svc, user), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	repo := new(MockRepository)
	router := middlewareRouter(newTestService(repo))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	repo := new(MockRepository)
	router := middlewareRouter(newTestService(repo))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
