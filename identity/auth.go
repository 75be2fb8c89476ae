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
	"context"
	"errors"
	"sync"
)

// ErrNoSession is returned by Auth operations that need a signed-in session.
var ErrNoSession = errors.New("no current session")

// Listener receives the current Session every time it changes. A nil Session means the
// client is signed out.
type Listener func(*Session)

// Subscription is a registered Listener. Cancel unregisters it.
type Subscription struct {
	auth     *Auth
	listener Listener
}

// Cancel stops the delivery of further session changes to the listener. Cancel is
// idempotent.
func (s *Subscription) Cancel() {
	a := s.auth
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, sub := range a.subs {
		if sub == s {
			a.subs = append(a.subs[:i], a.subs[i+1:]...)
			return
		}
	}
}

// Auth holds the signed-in Session of a single logical client.
//
// Auth is safe for concurrent use. Listeners are invoked synchronously, in subscription
// order, after the state change and outside of any lock.
type Auth struct {
	client *Client

	mu      sync.Mutex
	current *Session
	subs    []*Subscription
}

// SignInWithPassword signs in with an email and password and makes the result the current
// session.
func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	s, err := a.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.setCurrent(s)
	return s, nil
}

// CreateAccount registers a new account and makes it the current session.
func (a *Auth) CreateAccount(ctx context.Context, email, password string) (*Session, error) {
	s, err := a.client.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.setCurrent(s)
	return s, nil
}

// CurrentSession returns the signed-in session, or nil.
func (a *Auth) CurrentSession() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// RefreshSession force-refreshes the ID token of the current session.
func (a *Auth) RefreshSession(ctx context.Context) (*Session, error) {
	cur := a.CurrentSession()
	if cur == nil {
		return nil, ErrNoSession
	}
	s, err := a.client.RefreshToken(ctx, cur)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// a concurrent sign-out or sign-in wins over the refresh
	if a.current == cur {
		a.current = s
	}
	return s, nil
}

// IDToken returns the ID token of the current session. The token is refreshed when
// forceRefresh is set or when it has expired.
func (a *Auth) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	cur := a.CurrentSession()
	if cur == nil {
		return "", ErrNoSession
	}
	if !forceRefresh && !cur.Expired() {
		return cur.IDToken, nil
	}
	s, err := a.RefreshSession(ctx)
	if err != nil {
		return "", err
	}
	return s.IDToken, nil
}

// SignOut clears the current session. Listeners are notified even when no session was
// present.
func (a *Auth) SignOut() {
	a.setCurrent(nil)
}

// Subscribe registers l for session changes. l is called once immediately with the
// current session.
func (a *Auth) Subscribe(l Listener) *Subscription {
	sub := &Subscription{auth: a, listener: l}
	a.mu.Lock()
	a.subs = append(a.subs, sub)
	cur := a.current
	a.mu.Unlock()

	l(cur)
	return sub
}

func (a *Auth) setCurrent(s *Session) {
	a.mu.Lock()
	a.current = s
	subs := append([]*Subscription(nil), a.subs...)
	a.mu.Unlock()

	for _, sub := range subs {
		sub.listener(s)
	}
}
