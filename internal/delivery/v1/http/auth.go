package http

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

// AdminRole — роль, которой разрешено менять чужие товары.
const AdminRole = "admin"

type actorCtxKey struct{}

// Claims — утверждения токена, выданного сервисом идентификации.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator проверяет Bearer-токены (HMAC) и кладёт в контекст запроса продавца из claim sub.
type Authenticator struct {
	secret []byte
	logger logger.Logger
}

func NewAuthenticator(secret string, logger logger.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), logger: logger}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.authenticate(r)
		if err != nil {
			a.logger.Debugf("%d %s %s: %v", http.StatusUnauthorized, r.Method, r.URL.Path, err)
			WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorCtxKey{}, actor)))
	})
}

func (a *Authenticator) authenticate(r *http.Request) (*usecase.Actor, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, e.Wrap("missing bearer token", e.ErrUnauthorized)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, e.Wrap(err.Error(), e.ErrUnauthorized)
	}

	if claims.Subject == "" {
		return nil, e.Wrap("token has no subject", e.ErrUnauthorized)
	}

	return &usecase.Actor{
		UserID:  claims.Subject,
		IsAdmin: slices.Contains(claims.Roles, AdminRole),
	}, nil
}

// ActorFromCtx возвращает аутентифицированного продавца из контекста запроса.
func ActorFromCtx(ctx context.Context) (*usecase.Actor, bool) {
	actor, ok := ctx.Value(actorCtxKey{}).(*usecase.Actor)
	return actor, ok
}
