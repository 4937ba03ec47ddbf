package echoapi

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core/access"
)

const (
	tokenContextKey   = "sessionToken"
	sessionContextKey = "session"
	tokenAudience     = "dashboards"
)

// Claims represents the authorization claims transmitted via a JWT.
// The token only points at a server-side session; the role is informative.
type Claims struct {
	jwt.StandardClaims
	SessionID string      `json:"sid"`
	Email     string      `json:"email,omitempty"`
	Role      access.Role `json:"role,omitempty"`
}

func newJWTConfig(secretKey string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// GetSessionClaims builds the claims of a token valid as long as the session.
func GetSessionClaims(sess access.Session, issuer string) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   sess.Identity.UID,
			Audience:  tokenAudience,
			ExpiresAt: sess.ExpiresAt.Unix(),
			IssuedAt:  sess.CreatedAt.Unix(),
		},
		SessionID: sess.ID,
		Email:     sess.Identity.Email,
		Role:      sess.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the session Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)

	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextSession(ctx echo.Context) (access.Session, bool) {
	sess, ok := ctx.Get(sessionContextKey).(access.Session)
	return sess, ok
}

// sessionMiddleware resolves the token's session; it must run after the JWT middleware.
func sessionMiddleware(svc *access.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			sess, err := svc.Current(ctx.Request().Context(), claims.SessionID)
			if err != nil {
				return errors.Wrap(err, "loading session")
			}
			ctx.Set(sessionContextKey, sess)
			return next(ctx)
		}
	}
}
