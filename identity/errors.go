// Copyright 2026 The staffauth Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/college-staff-manager/staffauth/internal"
)

const identityErrorCodeKey = "identityErrorCode"

// Identity Toolkit error codes surfaced by this package.
const (
	emailExists            = "EMAIL_EXISTS"
	emailNotFound          = "EMAIL_NOT_FOUND"
	invalidPassword        = "INVALID_PASSWORD"
	invalidLoginCredential = "INVALID_LOGIN_CREDENTIALS"
	userDisabled           = "USER_DISABLED"
	userNotFound           = "USER_NOT_FOUND"
	tooManyAttempts        = "TOO_MANY_ATTEMPTS_TRY_LATER"
	tokenExpired           = "TOKEN_EXPIRED"
	invalidRefreshToken    = "INVALID_REFRESH_TOKEN"
	weakPassword           = "WEAK_PASSWORD"
	invalidEmail           = "INVALID_EMAIL"
)

type identityError struct {
	code    internal.ErrorCode
	message string
}

var identityErrorCodes = map[string]identityError{
	emailExists: {
		code:    internal.AlreadyExists,
		message: "the email address is already in use by another account",
	},
	emailNotFound: {
		code:    internal.NotFound,
		message: "no account exists for the provided email",
	},
	invalidPassword: {
		code:    internal.InvalidArgument,
		message: "the password is invalid",
	},
	invalidLoginCredential: {
		code:    internal.InvalidArgument,
		message: "the supplied email or password is invalid",
	},
	userDisabled: {
		code:    internal.PermissionDenied,
		message: "the account has been disabled",
	},
	userNotFound: {
		code:    internal.NotFound,
		message: "no account record corresponding to the provided identifier",
	},
	tooManyAttempts: {
		code:    internal.ResourceExhausted,
		message: "too many unsuccessful attempts; try again later",
	},
	tokenExpired: {
		code:    internal.Unauthenticated,
		message: "the refresh token has expired or the credential has changed",
	},
	invalidRefreshToken: {
		code:    internal.InvalidArgument,
		message: "the refresh token is invalid",
	},
	weakPassword: {
		code:    internal.InvalidArgument,
		message: "the password must be at least 6 characters long",
	},
	invalidEmail: {
		code:    internal.InvalidArgument,
		message: "the email address is malformed",
	},
}

// handleHTTPError converts an Identity Toolkit error response into a FirebaseError whose Ext
// carries the backend error code.
//
// Backend messages have the form "CODE" or "CODE : detail".
func handleHTTPError(resp *internal.Response) error {
	err := internal.NewFirebaseErrorOnePlatform(resp)
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	json.Unmarshal(resp.Body, &parsed) // ignore any json parse errors at this level

	code := parsed.Error.Message
	detail := ""
	if idx := strings.Index(code, ":"); idx != -1 {
		detail = strings.TrimSpace(code[idx+1:])
		code = strings.TrimSpace(code[:idx])
	}
	if code == "" {
		return err
	}

	if ie, ok := identityErrorCodes[code]; ok {
		err.ErrorCode = ie.code
		err.String = ie.message
		if detail != "" {
			err.String += " (" + detail + ")"
		}
	}
	err.Ext = map[string]interface{}{
		identityErrorCodeKey: code,
	}
	return err
}

func hasIdentityErrorCode(err error, codes ...string) bool {
	var fe *internal.FirebaseError
	if !errors.As(err, &fe) {
		return false
	}
	got, ok := fe.Ext[identityErrorCodeKey].(string)
	if !ok {
		return false
	}
	for _, c := range codes {
		if got == c {
			return true
		}
	}
	return false
}

// IsEmailExists checks if the given error was due to an already registered email.
func IsEmailExists(err error) bool {
	return hasIdentityErrorCode(err, emailExists)
}

// IsInvalidCredential checks if the given error was due to an unknown email or a wrong
// password.
//
// The backend reports both cases as INVALID_LOGIN_CREDENTIALS when email enumeration
// protection is enabled, and as EMAIL_NOT_FOUND or INVALID_PASSWORD otherwise.
func IsInvalidCredential(err error) bool {
	return hasIdentityErrorCode(err, invalidLoginCredential, emailNotFound, invalidPassword)
}

// IsUserNotFound checks if the given error was due to a non-existing account.
func IsUserNotFound(err error) bool {
	return hasIdentityErrorCode(err, userNotFound, emailNotFound)
}

// IsUserDisabled checks if the given error was due to a disabled account.
func IsUserDisabled(err error) bool {
	return hasIdentityErrorCode(err, userDisabled)
}

// IsTooManyAttempts checks if the given error was due to the backend throttling sign-ins.
func IsTooManyAttempts(err error) bool {
	return hasIdentityErrorCode(err, tooManyAttempts)
}

// IsSessionExpired checks if the given error was due to a refresh token that can no longer
// be exchanged.
func IsSessionExpired(err error) bool {
	return hasIdentityErrorCode(err, tokenExpired, invalidRefreshToken)
}
