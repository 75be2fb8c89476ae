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
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/college-staff-manager/staffauth/storage"
)

type uploadResponse struct {
	Filename   string  `json:"filename"`
	Size       int64   `json:"size"`
	StorageURL *string `json:"storage_url"`
}

// handleUploadFile stores an uploaded file under the uploads prefix of the default bucket.
// storage_url is null when the object could not be made public.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		writeError(w, http.StatusServiceUnavailable, "File storage not configured")
		return
	}
	f, hdr, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer f.Close()

	ext := strings.ToLower(path.Ext(hdr.Filename))
	if !s.allowedExt[strings.TrimPrefix(ext, ".")] {
		writeError(w, http.StatusBadRequest, "File type not allowed")
		return
	}
	filename := strings.TrimPrefix(storage.ObjectName(hdr.Filename), storage.UploadPrefix)
	if filename == "" {
		writeError(w, http.StatusBadRequest, "Empty filename")
		return
	}

	ctx := r.Context()
	url, err := s.uploads.Upload(ctx, filename, f, mime.TypeByExtension(ext))
	if errors.Is(err, storage.ErrNotPublic) {
		s.requestLogger(ctx).WarnContext(ctx, "uploaded file is not public", "file", filename, "error", err)
		err = nil
	}
	if err != nil {
		s.requestLogger(ctx).ErrorContext(ctx, "upload failed", "file", filename, "error", err)
		writeErrorDetail(w, http.StatusInternalServerError, "Upload failed", err)
		return
	}

	resp := uploadResponse{Filename: filename, Size: hdr.Size}
	if url != "" {
		resp.StorageURL = &url
	}
	writeJSON(w, http.StatusOK, resp)
}

// formFile returns the multipart "file" field of r, or writes an error response and
// returns false.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return nil, nil, false
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return nil, nil, false
	}
	if hdr.Filename == "" {
		f.Close()
		writeError(w, http.StatusBadRequest, "Empty filename")
		return nil, nil, false
	}
	return f, hdr, true
}
