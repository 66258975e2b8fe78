package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/observability"
)

// ClaimsKey is the gin context key holding the validated *Claims.
const ClaimsKey = "claims"

// JWTConfig configures bearer-token verification for the ingest API.
// Tokens are HMAC-signed; Issuer and Audience are checked when set.
type JWTConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Secret   string `yaml:"secret" mapstructure:"secret"`
	Method   string `yaml:"method" mapstructure:"method"`
	Issuer   string `yaml:"issuer" mapstructure:"issuer"`
	Audience string `yaml:"audience" mapstructure:"audience"`
}

// ApplyDefaults sets HS256 when no method is configured.
func (c *JWTConfig) ApplyDefaults() {
	if c.Method == "" {
		c.Method = gojwt.SigningMethodHS256.Alg()
	}
}

// Validate checks the configuration when auth is enabled.
func (c *JWTConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Secret == "" {
		return errors.New("server.auth.secret is required when auth is enabled")
	}
	if c.signingMethod() == nil {
		return fmt.Errorf("server.auth.method must be HS256, HS384 or HS512 (got: %s)", c.Method)
	}
	return nil
}

func (c *JWTConfig) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case "", gojwt.SigningMethodHS256.Alg():
		return gojwt.SigningMethodHS256
	case gojwt.SigningMethodHS384.Alg():
		return gojwt.SigningMethodHS384
	case gojwt.SigningMethodHS512.Alg():
		return gojwt.SigningMethodHS512
	default:
		return nil
	}
}

// Claims are the token claims accepted by the ingest API.
type Claims struct {
	gojwt.RegisteredClaims
}

// TokenValidator validates a raw bearer token.
type TokenValidator func(token string) (*Claims, error)

// NewJWTValidator returns a TokenValidator for cfg. Signature, expiry and the
// configured issuer and audience are all enforced.
func NewJWTValidator(cfg JWTConfig) TokenValidator {
	method := cfg.signingMethod()
	opts := []gojwt.ParserOption{gojwt.WithExpirationRequired()}
	if method != nil {
		opts = append(opts, gojwt.WithValidMethods([]string{method.Alg()}))
	}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(cfg.Audience))
	}
	key := []byte(cfg.Secret)

	return func(raw string) (*Claims, error) {
		if method == nil {
			return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.Method)
		}
		claims := &Claims{}
		token, err := gojwt.ParseWithClaims(raw, claims, func(t *gojwt.Token) (interface{}, error) {
			return key, nil
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("jwt: parse token: %w", err)
		}
		if !token.Valid {
			return nil, errors.New("jwt: invalid token")
		}
		return claims, nil
	}
}

// SignToken mints a token for subject that expires after ttl. It is used by
// the CLI to hand out ingest credentials.
func SignToken(cfg JWTConfig, subject string, ttl time.Duration) (string, error) {
	method := cfg.signingMethod()
	if method == nil {
		return "", fmt.Errorf("jwt: unsupported signing method %q", cfg.Method)
	}
	if cfg.Secret == "" {
		return "", errors.New("jwt: secret is required")
	}
	now := time.Now()
	claims := Claims{RegisteredClaims: gojwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    cfg.Issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}}
	if cfg.Audience != "" {
		claims.Audience = gojwt.ClaimStrings{cfg.Audience}
	}
	signed, err := gojwt.NewWithClaims(method, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Auth returns a Gin middleware that requires a valid Bearer token. The
// validated claims are stored under ClaimsKey and the subject is attached to
// the request's OperationContext.
func Auth(validate TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.Unauthorized("Authorization header required.").ToResponse())
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.Unauthorized("Invalid authorization header format.").ToResponse())
			return
		}

		claims, err := validate(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.InvalidToken().ToResponse())
			return
		}

		c.Set(ClaimsKey, claims)
		if oc := observability.OperationContextFromContext(c.Request.Context()); oc != nil {
			oc.Subject = claims.Subject
		}
		observability.SetSpanAttribute(c.Request.Context(), observability.AttrSubject, claims.Subject)
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by Auth, or nil.
func ClaimsFrom(c *gin.Context) *Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*Claims); ok {
			return claims
		}
	}
	return nil
}
