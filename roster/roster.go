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

// Package roster provides access to the staff roster and user profile collections kept in
// Cloud Firestore.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collection names and field names used by the staff management application.
const (
	StaffCollection   = "staff"
	ProfileCollection = "users"

	FieldEmail        = "email"
	FieldMobileNo     = "mobileNo"
	FieldSerial       = "slNo"
	FieldLegacySerial = "Sl No"
	FieldName         = "name"

	FieldIsAdmin   = "isAdmin"
	FieldStaffID   = "staffId"
	FieldCreatedAt = "createdAt"
)

// ErrNotFound is returned when a staff document does not exist.
var ErrNotFound = errors.New("roster: document not found")

// StaffRecord is an entry of the staff roster.
//
// MobileNo and StaffID are normalized to strings; Fields keeps the document as stored.
type StaffRecord struct {
	ID       string
	Email    string
	MobileNo string
	StaffID  string
	Name     string
	Fields   map[string]interface{}
}

// Profile is the application-level record of a signed-up account, keyed by its uid.
type Profile struct {
	Email     string
	IsAdmin   bool
	StaffID   string
	CreatedAt time.Time
}

// Store reads and writes the roster and profile collections.
type Store struct {
	client *firestore.Client
}

// New returns a Store backed by the given Firestore client.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Close closes the underlying Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

// StaffByEmail returns every staff record whose email field equals email exactly, in the
// order Firestore returns them.
func (s *Store) StaffByEmail(ctx context.Context, email string) ([]*StaffRecord, error) {
	q := s.client.Collection(StaffCollection).Where(FieldEmail, "==", email)
	return collectStaff(q.Documents(ctx))
}

// ListStaff returns the whole roster.
func (s *Store) ListStaff(ctx context.Context) ([]*StaffRecord, error) {
	return collectStaff(s.client.Collection(StaffCollection).Documents(ctx))
}

// Staff returns the staff record with the given document id, or ErrNotFound.
func (s *Store) Staff(ctx context.Context, id string) (*StaffRecord, error) {
	snap, err := s.client.Collection(StaffCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading staff %q: %w", id, err)
	}
	return staffFromData(snap.Ref.ID, snap.Data()), nil
}

// UpsertStaff merges fields into the staff document with the given id, creating it when
// needed.
func (s *Store) UpsertStaff(ctx context.Context, id string, fields map[string]interface{}) error {
	if _, err := s.client.Collection(StaffCollection).Doc(id).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("writing staff %q: %w", id, err)
	}
	return nil
}

// DeleteStaff deletes the staff document with the given id.
func (s *Store) DeleteStaff(ctx context.Context, id string) error {
	if _, err := s.client.Collection(StaffCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("deleting staff %q: %w", id, err)
	}
	return nil
}

// Profile returns the profile stored under uid, or nil when there is none.
func (s *Store) Profile(ctx context.Context, uid string) (*Profile, error) {
	snap, err := s.client.Collection(ProfileCollection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile %q: %w", uid, err)
	}
	if !snap.Exists() {
		return nil, nil
	}
	return profileFromData(snap.Data()), nil
}

// CreateProfile writes p under uid. A zero CreatedAt is replaced by the server timestamp.
func (s *Store) CreateProfile(ctx context.Context, uid string, p *Profile) error {
	doc := map[string]interface{}{
		FieldEmail:     p.Email,
		FieldIsAdmin:   p.IsAdmin,
		FieldStaffID:   p.StaffID,
		FieldCreatedAt: firestore.ServerTimestamp,
	}
	if !p.CreatedAt.IsZero() {
		doc[FieldCreatedAt] = p.CreatedAt
	}
	if _, err := s.client.Collection(ProfileCollection).Doc(uid).Set(ctx, doc); err != nil {
		return fmt.Errorf("writing profile %q: %w", uid, err)
	}
	return nil
}

// DeleteProfile deletes the profile stored under uid.
func (s *Store) DeleteProfile(ctx context.Context, uid string) error {
	if _, err := s.client.Collection(ProfileCollection).Doc(uid).Delete(ctx); err != nil {
		return fmt.Errorf("deleting profile %q: %w", uid, err)
	}
	return nil
}

func collectStaff(iter *firestore.DocumentIterator) ([]*StaffRecord, error) {
	defer iter.Stop()
	var staff []*StaffRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return staff, nil
		}
		if err != nil {
			return nil, fmt.Errorf("querying staff: %w", err)
		}
		staff = append(staff, staffFromData(snap.Ref.ID, snap.Data()))
	}
}

func staffFromData(id string, data map[string]interface{}) *StaffRecord {
	return &StaffRecord{
		ID:       id,
		Email:    StringValue(data[FieldEmail]),
		MobileNo: StringValue(data[FieldMobileNo]),
		StaffID:  StringValue(FirstValue(data, FieldSerial, FieldLegacySerial)),
		Name:     StringValue(data[FieldName]),
		Fields:   data,
	}
}

func profileFromData(data map[string]interface{}) *Profile {
	p := &Profile{
		Email:   StringValue(data[FieldEmail]),
		StaffID: StringValue(data[FieldStaffID]),
	}
	p.IsAdmin, _ = data[FieldIsAdmin].(bool)
	p.CreatedAt, _ = data[FieldCreatedAt].(time.Time)
	return p
}

// FirstValue returns the value of the first of keys holding a non-empty value in data.
func FirstValue(data map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v := data[k]; !isEmpty(v) {
			return v
		}
	}
	return nil
}

// StringValue renders a stored document value as a string. Missing, false, zero and empty
// values all render as "".
func StringValue(v interface{}) string {
	if isEmpty(v) {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return "true"
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case int64:
		return t == 0
	case int:
		return t == 0
	case float64:
		return t == 0 || t != t
	}
	return false
}
