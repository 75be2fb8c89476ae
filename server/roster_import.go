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

package server

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/college-staff-manager/staffauth/roster"
)

// Accepted spellings of the roster columns, in order of preference.
var (
	emailColumns  = []string{"Mail", "email"}
	phoneColumns  = []string{"Phone", "mobileNo", "mobile"}
	serialColumns = []string{"Sl No", "SlNo", "slno"}
	nameColumns   = []string{"Name", "name"}
)

type importedAccount struct {
	Email string `json:"email"`
	UID   string `json:"uid"`
}

type importError struct {
	Row    int    `json:"row"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// rosterRow is one staff entry read from an uploaded roster.
type rosterRow struct {
	Email  string
	Phone  string
	Serial string
	Name   string
}

// handleUploadRoster imports a CSV or XLSX roster. Every row with an email and a phone
// number gets an account whose password is the phone number, a profile, and a staff
// document keyed by its serial number, or by its email when it has none.
func (s *Server) handleUploadRoster(w http.ResponseWriter, r *http.Request) {
	f, hdr, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer f.Close()

	rows, err := readRoster(hdr.Filename, f)
	if err != nil {
		writeErrorDetail(w, http.StatusBadRequest, "Failed to read roster", err)
		return
	}

	ctx := r.Context()
	created := []importedAccount{}
	errs := []importError{}
	for i, row := range rows {
		if row.Email == "" || row.Phone == "" {
			errs = append(errs, importError{Row: i, Reason: "missing email or phone"})
			continue
		}
		uid, err := s.provision(ctx, row)
		if err != nil {
			// Usually an existing account; the staff document is still written.
			errs = append(errs, importError{Row: i, Email: row.Email, Error: err.Error()})
		} else {
			created = append(created, importedAccount{Email: row.Email, UID: uid})
		}

		id := row.Serial
		if id == "" {
			id = row.Email
		}
		fields := map[string]interface{}{
			roster.FieldName:         row.Name,
			roster.FieldEmail:        row.Email,
			roster.FieldMobileNo:     row.Phone,
			roster.FieldLegacySerial: row.Serial,
		}
		if err := s.roster.UpsertStaff(ctx, id, fields); err != nil {
			errs = append(errs, importError{Row: i, Email: row.Email, Error: err.Error()})
		}
	}

	s.requestLogger(ctx).InfoContext(ctx, "imported staff roster",
		"file", hdr.Filename, "rows", len(rows), "created", len(created), "errors", len(errs))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"created": created,
		"errors":  errs,
	})
}

func (s *Server) provision(ctx context.Context, row rosterRow) (string, error) {
	user, err := s.accounts.CreateUser(ctx, row.Email, row.Phone)
	if err != nil {
		return "", err
	}
	p := &roster.Profile{Email: row.Email, StaffID: row.Serial}
	if err := s.roster.CreateProfile(ctx, user.UID, p); err != nil {
		return "", err
	}
	return user.UID, nil
}

// readRoster parses an uploaded roster by file extension.
func readRoster(name string, r io.Reader) ([]rosterRow, error) {
	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		records, err = cr.ReadAll()
	case ".xlsx":
		records, err = readSheet(r)
	default:
		return nil, fmt.Errorf("unsupported roster format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return parseRoster(records)
}

// readSheet returns the cells of the first worksheet of an XLSX workbook.
func readSheet(r io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer book.Close()
	sheet := book.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	return book.GetRows(sheet)
}

// parseRoster maps records to rows using the header in the first record.
func parseRoster(records [][]string) ([]rosterRow, error) {
	if len(records) == 0 {
		return nil, errors.New("roster is empty")
	}
	header := map[string]int{}
	for i, col := range records[0] {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, dup := header[col]; !dup {
			header[col] = i
		}
	}

	cell := func(record []string, columns []string) string {
		for _, c := range columns {
			i, ok := header[c]
			if !ok || i >= len(record) {
				continue
			}
			if v := strings.TrimSpace(record[i]); v != "" {
				return v
			}
		}
		return ""
	}

	rows := make([]rosterRow, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, rosterRow{
			Email:  cell(record, emailColumns),
			Phone:  cell(record, phoneColumns),
			Serial: cell(record, serialColumns),
			Name:   cell(record, nameColumns),
		})
	}
	return rows, nil
}
