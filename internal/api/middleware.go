/**
 * @description
 * This file contains custom middleware for the HTTP router. Middlewares are used
 * to process requests before they reach the final handler, perfect for tasks like
 * authentication, logging, or adding context to a request.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: JWT parsing and validation.
 */

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// authContextKey is a custom type for context keys to avoid collisions.
type authContextKey string

const authUserKey authContextKey = "authUser"

// AuthUser carries the authenticated caller extracted from a validated JWT.
type AuthUser struct {
	ID   uuid.UUID
	Role string
}

// GetAuthUser retrieves the authenticated user from the request context.
func GetAuthUser(ctx context.Context) (AuthUser, bool) {
	user, ok := ctx.Value(authUserKey).(AuthUser)
	return user, ok
}

func parseBearerToken(r *http.Request, secret string) (AuthUser, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return AuthUser{}, fmt.Errorf("authorization header required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return AuthUser{}, fmt.Errorf("invalid authorization header format")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return AuthUser{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return AuthUser{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AuthUser{}, fmt.Errorf("invalid token claims")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return AuthUser{}, fmt.Errorf("token subject missing")
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return AuthUser{}, fmt.Errorf("token subject is not a valid user id")
	}

	role, _ := claims["role"].(string)
	return AuthUser{ID: userID, Role: role}, nil
}

// AuthMiddleware creates a middleware that validates HS256 JWT tokens and
// stores the caller's identity and role in the request context.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := parseBearerToken(r, secret)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), authUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware extracts the caller's identity when a valid token is
// present but lets anonymous requests through. Used on endpoints that accept
// guest callers, like donation creation.
func OptionalAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				if user, err := parseBearerToken(r, secret); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), authUserKey, user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a route group to callers holding one of the given roles.
// Must run after AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetAuthUser(r.Context())
			if !ok {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "insufficient permissions", http.StatusForbidden)
		})
	}
}
