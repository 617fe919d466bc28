package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"control-produccion/apperrors"
	"control-produccion/models"
)

// OperatorClaims are the claims issued by the login collaborator.
type OperatorClaims struct {
	OperatorID  string `json:"operator_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	SigningKey []byte
	Issuer     string
}

// GenerateToken signs an operator token. Production tokens come from the
// login collaborator; this is used by tooling and tests.
func GenerateToken(cfg JWTConfig, op models.Operator, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := OperatorClaims{
		OperatorID:  op.ID,
		DisplayName: op.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   op.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a bearer token.
func (cfg JWTConfig) ValidateToken(tokenString string) (*OperatorClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.SigningKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if strings.TrimSpace(claims.OperatorID) == "" {
		return nil, errors.New("operator_id claim is empty")
	}
	return claims, nil
}

// JWTAuth validates the Bearer token and stores the operator in the request context.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		claims, err := cfg.ValidateToken(parts[1])
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			abortUnauthorized(c, msg)
			return
		}

		op := models.Operator{ID: claims.OperatorID, DisplayName: claims.DisplayName}
		c.Set(string(ctxKeyOperator), op)
		c.Request = c.Request.WithContext(WithOperator(c.Request.Context(), op))

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	err := apperrors.Unauthorized(apperrors.CodeUnauthorized, msg)
	c.AbortWithStatusJSON(err.HTTPStatus, gin.H{
		"code":    err.Code,
		"message": err.Message,
	})
}
