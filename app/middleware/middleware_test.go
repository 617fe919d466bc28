package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"control-produccion/apperrors"
	"control-produccion/models"
)

const testKey = "test-signing-key-1234567890123456"

func init() {
	gin.SetMode(gin.TestMode)
}

func testJWT() JWTConfig {
	return JWTConfig{SigningKey: []byte(testKey), Issuer: "control-produccion"}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_NoErrors(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorHandler_AppErrorWithParams(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.POST("/fail", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrSessionConflict("L-100", "abc"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/fail", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, apperrors.CodeSessionConflict, body["code"])
	params, ok := body["params"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "L-100", params["active_parent_batch"])
}

func TestErrorHandler_WrappedAppError(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.Join(errors.New("ctx"), apperrors.ErrUnknownSession("k")))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeUnknownSession, decode(t, w)["code"])
}

func TestErrorHandler_UnknownErrorIs500(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("connection reset by peer"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c.Request.Context()))
	})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		rid := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, rid)
		assert.Equal(t, rid, w.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-42", w.Body.String())
	})
}

func TestValidateToken(t *testing.T) {
	cfg := testJWT()
	op := models.Operator{ID: "op-1", DisplayName: "Ana"}

	token, err := GenerateToken(cfg, op, time.Hour)
	require.NoError(t, err)

	claims, err := cfg.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.OperatorID)
	assert.Equal(t, "Ana", claims.DisplayName)
}

func TestValidateToken_RejectsInvalidIssuer(t *testing.T) {
	token, err := GenerateToken(JWTConfig{SigningKey: []byte(testKey), Issuer: "someone-else"},
		models.Operator{ID: "op-1"}, time.Hour)
	require.NoError(t, err)

	_, err = testJWT().ValidateToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	token, err := GenerateToken(testJWT(), models.Operator{ID: "op-1"}, -time.Minute)
	require.NoError(t, err)

	_, err = testJWT().ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateToken_RejectsEmptyOperator(t *testing.T) {
	token, err := GenerateToken(testJWT(), models.Operator{}, time.Hour)
	require.NoError(t, err)

	_, err = testJWT().ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	cfg := testJWT()
	router := gin.New()
	router.Use(JWTAuth(cfg))
	router.GET("/me", func(c *gin.Context) {
		op, ok := OperatorFrom(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, op)
	})

	valid, err := GenerateToken(cfg, models.Operator{ID: "op-7", DisplayName: "Luis"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, tt.want, w.Code)
			body := decode(t, w)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, apperrors.CodeUnauthorized, body["code"])
				return
			}
			assert.Equal(t, "op-7", body["operatorId"])
			assert.Equal(t, "Luis", body["displayName"])
		})
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(RequestID(), AccessLog(zap.New(core)))
	router.GET("/batches/:parent/status", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches/L-1/status", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/batches/:parent/status", fields["path"])
	assert.EqualValues(t, http.StatusNoContent, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}
