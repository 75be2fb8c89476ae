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

package login

import "errors"

// Kind identifies the class of a login failure.
type Kind int

const (
	// KindInvalidCredentials means neither an account nor a roster entry accepted the
	// credentials.
	KindInvalidCredentials Kind = iota + 1

	// KindLoginFailed means a roster entry matched but the account could not be set up,
	// or the roster could not be read.
	KindLoginFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindLoginFailed:
		return "login failed"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by Reconciler.Login.
type Error struct {
	Kind   Kind
	reason string
}

func newError(k Kind, reason string) *Error {
	return &Error{Kind: k, reason: reason}
}

func (e *Error) Error() string {
	return e.Kind.String()
}

// Reason is a short, non-sensitive description of the failing step, for diagnostics.
func (e *Error) Reason() string {
	return e.reason
}

// Is makes errors.Is match any Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinel values for use with errors.Is.
var (
	ErrInvalidCredentials error = &Error{Kind: KindInvalidCredentials}
	ErrLoginFailed        error = &Error{Kind: KindLoginFailed}
)

// IsInvalidCredentials checks if err is an invalid credentials login failure.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

// IsLoginFailed checks if err is a provisioning or lookup login failure.
func IsLoginFailed(err error) bool {
	return errors.Is(err, ErrLoginFailed)
}
