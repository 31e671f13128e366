package middleware

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserCtxKey = contextKey("user_id")

// SessionCookie is the name of the cookie carrying the signed session token.
const SessionCookie = "microblog_session"

const sessionTTL = 24 * time.Hour

// Session resolves the caller's identity from the session cookie and stores it
// in the request context. Resolution fails soft: a missing cookie, a bad
// signature, or an expired token all pass the request through with no user set.
// Handlers that need a caller must treat "no current user" as a normal case.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := parseSessionToken(cookie.Value)
		if err != nil || userID == "" {
			// Stale or tampered cookie: drop it and continue anonymous.
			ClearSession(w)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), UserCtxKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IssueSession sets the session cookie for the given user.
func IssueSession(w http.ResponseWriter, userID string) error {
	secret := []byte(os.Getenv("SESSION_SECRET"))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(sessionTTL).Unix(),
	})
	tokenStr, err := token.SignedString(secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    tokenStr,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSession expires the session cookie, logging the caller out.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func parseSessionToken(tokenStr string) (string, error) {
	secret := []byte(os.Getenv("SESSION_SECRET"))
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid session claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", errors.New("invalid user_id in session")
	}
	return userID, nil
}

// UserIDFromContext returns the caller's user ID, or false when anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserCtxKey).(string)
	return id, ok
}
