package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lgulliver/simpledrive/internal/auth"
	"github.com/lgulliver/simpledrive/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthService mocks the auth service for testing
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TokenClaims), args.Error(1)
}

func setupRouter(validator TokenValidator, reached *bool, captured **types.TokenClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(AuthMiddleware(validator))
	router.GET("/test", func(c *gin.Context) {
		*reached = true
		if claims, ok := GetClaimsFromContext(c); ok {
			*captured = claims
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return router
}

func TestAuthMiddleware_ValidBearerToken(t *testing.T) {
	mockAuth := new(MockAuthService)
	claims := &types.TokenClaims{Subject: "alice", Scope: "default"}
	mockAuth.On("ValidateToken", mock.Anything, "valid-token").Return(claims, nil)

	var reached bool
	var captured *types.TokenClaims
	router := setupRouter(mockAuth, &reached, &captured)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reached)
	assert.Equal(t, claims, captured)
	mockAuth.AssertExpectations(t)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		err      error
		wantCode string
	}{
		{name: "missing header", wantCode: ErrCodeUnauthorized},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantCode: ErrCodeUnauthorized},
		{name: "empty bearer", header: "Bearer   ", wantCode: ErrCodeUnauthorized},
		{name: "invalid token", header: "Bearer bad", err: auth.ErrInvalidToken, wantCode: ErrCodeInvalidToken},
		{name: "unknown token", header: "Bearer bad", err: auth.ErrTokenNotFound, wantCode: ErrCodeTokenNotFound},
		{name: "lookup failure", header: "Bearer bad", err: errors.New("db down"), wantCode: ErrCodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuth := new(MockAuthService)
			if tt.err != nil {
				mockAuth.On("ValidateToken", mock.Anything, "bad").Return(nil, tt.err)
			}

			var reached bool
			var captured *types.TokenClaims
			router := setupRouter(mockAuth, &reached, &captured)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, reached)

			var resp types.APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.ErrorCode)
			mockAuth.AssertExpectations(t)
		})
	}
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-123", w.Body.String())
}
