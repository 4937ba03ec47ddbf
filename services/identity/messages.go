package identitysvc

import (
	"net/http"
	"strings"

	"github.com/nihongowithmoeno/moeno/core"
)

const defaultAuthMessage = "An error occurred during authentication. Please try again."

// authMessages covers both the REST error codes and the browser SDK ("auth/...") codes.
var authMessages = map[string]string{
	"auth/user-not-found":          "Invalid email or password",
	"auth/wrong-password":          "Invalid email or password",
	"auth/invalid-email":           "Invalid email address",
	"auth/popup-closed-by-user":    "Sign-in popup was closed before completion",
	"auth/cancelled-popup-request": "The sign-in popup was cancelled",
	"auth/popup-blocked":           "Sign-in popup was blocked by the browser",
	"auth/operation-not-allowed":   "This sign-in method is not enabled. Please contact support.",
	"auth/network-request-failed":  "Network error occurred. Please check your connection.",

	"EMAIL_NOT_FOUND":           "Invalid email or password",
	"INVALID_PASSWORD":          "Invalid email or password",
	"INVALID_LOGIN_CREDENTIALS": "Invalid email or password",
	"INVALID_EMAIL":             "Invalid email address",
	"OPERATION_NOT_ALLOWED":     "This sign-in method is not enabled. Please contact support.",
	"INVALID_ID_TOKEN":          "Your session has expired. Please sign in again.",
	"TOKEN_EXPIRED":             "Your session has expired. Please sign in again.",
	"USER_NOT_FOUND":            "Your session has expired. Please sign in again.",
	"USER_DISABLED":             "This account has been disabled. Please contact support.",
}

// AuthMessage returns the human readable message for a provider error code.
// REST codes may carry a detail suffix ("CODE : detail"), which is ignored.
func AuthMessage(code string) string {
	if msg, ok := authMessages[normalizeCode(code)]; ok {
		return msg
	}
	return defaultAuthMessage
}

// NewAuthError maps a provider error code to a core.AuthError.
func NewAuthError(code string) *core.AuthError {
	code = normalizeCode(code)
	status := http.StatusUnauthorized
	switch code {
	case "auth/network-request-failed":
		status = http.StatusServiceUnavailable
	case "USER_DISABLED", "OPERATION_NOT_ALLOWED", "auth/operation-not-allowed":
		status = http.StatusForbidden
	}
	return &core.AuthError{Code: code, Message: AuthMessage(code), Status: status}
}

func normalizeCode(code string) string {
	if i := strings.Index(code, " "); i >= 0 {
		code = code[:i]
	}
	return strings.TrimSpace(code)
}
