// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import "fmt"

var (
	// ErrQuotaExceeded means the user's storage quota does not fit the new
	// file. User-correctable: delete some files.
	ErrQuotaExceeded = fmt.Errorf("storage limit exceeded, delete some files to free up space")

	// ErrTooManyFiles means the per-message attachment count limit was hit.
	ErrTooManyFiles = fmt.Errorf("too many files attached to one message")

	// ErrMessageFilesTooLarge means the per-message total size limit was hit.
	ErrMessageFilesTooLarge = fmt.Errorf("attached files are too large for one message")

	// ErrStorageBackend means the blob store failed; the caller may retry.
	ErrStorageBackend = fmt.Errorf("storage backend failure, try again later")

	// ErrMetadataWrite means the relational store failed after a successful
	// blob write; the blob is rolled back before this surfaces.
	ErrMetadataWrite = fmt.Errorf("storage backend failure, try again later")

	// ErrFileNotFound means no file record exists for the given ID.
	ErrFileNotFound = fmt.Errorf("file not found")

	// ErrNotFileOwner means the caller does not own the file.
	ErrNotFileOwner = fmt.Errorf("unauthorized: file does not belong to user")
)
