package session

import (
	"errors"

	domain "memberdesk/internal/domain/session"
)

// Domain errors raised by the controller. Their text is shown to the user.
var (
	ErrMissingFields           = errors.New("Please fill all fields")
	ErrProfileMissing          = errors.New("User account not properly configured")
	ErrInvalidRole             = errors.New("Please select a valid role")
	ErrNotAdmin                = errors.New("You are not authorized as an administrator")
	ErrNotAuthenticated        = errors.New("Not authenticated")
	ErrInsufficientPermissions = errors.New("Insufficient permissions")
)

// FallbackMessage is shown for provider codes without a specific message.
const FallbackMessage = "Login failed. Please try again."

var codeMessages = map[string]string{
	domain.CodeInvalidEmail:   "Invalid email address.",
	domain.CodeUserDisabled:   "This account has been disabled.",
	domain.CodeUserNotFound:   "No account found with this email.",
	domain.CodeWrongPassword:  "Incorrect password.",
	domain.CodeTooManyRequest: "Too many failed attempts. Try again later.",
	domain.CodeNetworkFailed:  "Network error. Check your connection.",
}

var domainErrors = []error{
	ErrMissingFields,
	ErrProfileMissing,
	ErrInvalidRole,
	ErrNotAdmin,
	ErrNotAuthenticated,
	ErrInsufficientPermissions,
}

// MessageForCode maps a provider error code to its user-facing message.
func MessageForCode(code string) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return FallbackMessage
}

// UserMessage returns the inline text for a login or guard error. Domain
// errors carry their own message and take precedence over the provider
// lookup.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, de := range domainErrors {
		if errors.Is(err, de) {
			return de.Error()
		}
	}
	return MessageForCode(domain.CodeOf(err))
}
