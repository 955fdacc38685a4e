package accounts

import (
	"strings"

	"github.com/goliatone/go-router"
)

// DefaultActorContextKey is the locals key the Actor is stored under when no
// key is configured.
const DefaultActorContextKey = "actor"

// TokenValidator captures the token service method the middleware needs.
type TokenValidator interface {
	Validate(token string) (*AccountClaims, error)
}

// Authenticate resolves the bearer token into an Actor and stores it in the
// router locals under contextKey. Requests without a valid token end here
// with an unauthenticated response.
func Authenticate(tokens TokenValidator, contextKey string) router.MiddlewareFunc {
	if contextKey == "" {
		contextKey = DefaultActorContextKey
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw, err := bearerToken(ctx)
			if err != nil {
				return RenderError(ctx, err)
			}

			claims, err := tokens.Validate(raw)
			if err != nil {
				return RenderError(ctx, ErrUnauthenticated)
			}

			ctx.Locals(contextKey, claims.Actor())

			return next(ctx)
		}
	}
}

// RequireClient only admits client-credential tokens. It runs after
// Authenticate; routes for trusted applications (store, resend) chain it.
func RequireClient(contextKey string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			actor, ok := GetRouterActor(ctx, contextKey)
			if !ok {
				return RenderError(ctx, ErrUnauthenticated)
			}

			if !actor.Client {
				return RenderError(ctx, ErrInvalidScope)
			}

			return next(ctx)
		}
	}
}

func bearerToken(ctx router.Context) (string, error) {
	const scheme = "Bearer"

	header := ctx.GetString(router.HeaderAuthorization, "")
	if len(header) > len(scheme)+1 && strings.EqualFold(header[:len(scheme)], scheme) {
		return strings.TrimSpace(header[len(scheme):]), nil
	}

	return "", ErrUnauthenticated
}
