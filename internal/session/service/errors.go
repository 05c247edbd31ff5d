package service

import (
	"errors"

	"warden/internal/identity"
	dErrors "warden/pkg/domain-errors"
)

// providerCodeMap translates the provider's wire codes into the stable,
// user-displayable taxonomy.
var providerCodeMap = map[string]dErrors.Code{
	identity.ErrCodeUserNotFound:      dErrors.CodeAccountNotFound,
	identity.ErrCodeWrongPassword:     dErrors.CodeWrongPassword,
	identity.ErrCodeInvalidCredential: dErrors.CodeInvalidCredential,
	identity.ErrCodeEmailInUse:        dErrors.CodeEmailInUse,
	identity.ErrCodeWeakPassword:      dErrors.CodeWeakPassword,
	identity.ErrCodeInvalidEmail:      dErrors.CodeInvalidEmail,
	identity.ErrCodeTooManyRequests:   dErrors.CodeTooManyAttempts,
	identity.ErrCodePopupClosed:       dErrors.CodePopupClosed,
}

// displayMessages are the fixed strings surfaced for each classified code.
var displayMessages = map[dErrors.Code]string{
	dErrors.CodeAccountNotFound:   "no account found for this email",
	dErrors.CodeWrongPassword:     "incorrect password",
	dErrors.CodeInvalidCredential: "invalid credentials",
	dErrors.CodeEmailInUse:        "an account already exists for this email",
	dErrors.CodeWeakPassword:      "password is too weak",
	dErrors.CodeInvalidEmail:      "email address is invalid",
	dErrors.CodeTooManyAttempts:   "too many attempts, try again later",
	dErrors.CodePopupClosed:       "sign-in window was closed",
}

// classifyProviderError maps a provider failure onto the closed taxonomy.
// Codes outside the map classify as unknown, preserving the raw message for
// diagnostics without widening the taxonomy.
func classifyProviderError(err error) error {
	var perr *identity.ProviderError
	if errors.As(err, &perr) {
		if code, ok := providerCodeMap[perr.Code]; ok {
			return dErrors.Wrap(err, code, displayMessages[code])
		}
		return dErrors.Wrap(err, dErrors.CodeUnknown, perr.Message)
	}
	return dErrors.Wrap(err, dErrors.CodeUnknown, err.Error())
}
