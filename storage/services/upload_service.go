// Copyright (c) 2025 Lumen Chat
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	"strings"

	uuid "github.com/gofrs/uuid"
	"github.com/lumen-chat/lumen/internal/pkg/log"
	"github.com/lumen-chat/lumen/storage/models"
)

// TransformOptions parameterize the opaque image transform operation.
type TransformOptions struct {
	MaxWidth  int    `json:"maxWidth"`
	MaxHeight int    `json:"maxHeight"`
	Quality   int    `json:"quality"`
	Format    string `json:"format"`
}

// Transform is the opaque image-transform operation. It is invoked only after
// a capacity reservation succeeds; its failure triggers a release.
type Transform func(ctx context.Context, data []byte, opts TransformOptions) ([]byte, error)

// UploadFile is one attachment within an upload request.
type UploadFile struct {
	Name      string
	MediaType string
	Bytes     []byte
}

// UploadInput is a message-attachment upload request.
type UploadInput struct {
	UserID    uuid.UUID
	MessageID *uuid.UUID
	Files     []UploadFile

	// Transform, when non-nil together with TransformOptions, is applied to
	// image attachments subject to capacity reservation.
	Transform        Transform
	TransformOptions *TransformOptions
}

// UploadService orchestrates message-attachment uploads: per-message limit
// checks, optional image transformation behind the reservation ledger, and
// persistence through the file coordinator.
type UploadService struct {
	policies     *PolicyService
	reservations *ReservationService
	files        *FileService
}

// NewUploadService creates a new upload orchestration service
func NewUploadService(policies *PolicyService, reservations *ReservationService, files *FileService) *UploadService {
	return &UploadService{
		policies:     policies,
		reservations: reservations,
		files:        files,
	}
}

// UploadAttachments validates per-message limits and persists each file.
// Transform-capacity exhaustion is a soft failure: the original bytes are
// stored instead, never surfaced to the caller as an error.
func (s *UploadService) UploadAttachments(ctx context.Context, input UploadInput) ([]*models.File, error) {
	policy, err := s.policies.ResolvePolicy(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	if len(input.Files) > policy.MaxFilesPerMessage {
		return nil, ErrTooManyFiles
	}
	var totalSize int64
	for _, f := range input.Files {
		totalSize += int64(len(f.Bytes))
	}
	if totalSize > policy.MaxMessageFilesBytes {
		return nil, ErrMessageFilesTooLarge
	}

	persisted := make([]*models.File, 0, len(input.Files))
	for _, f := range input.Files {
		file, err := s.uploadOne(ctx, input, f)
		if err != nil {
			return persisted, err
		}
		persisted = append(persisted, file)
	}
	return persisted, nil
}

func (s *UploadService) uploadOne(ctx context.Context, input UploadInput, f UploadFile) (*models.File, error) {
	data := f.Bytes
	quotaSize := int64(len(f.Bytes))

	if isImage(f.MediaType) && input.Transform != nil && input.TransformOptions != nil {
		reservation, err := s.reservations.ReserveTransformSlot(ctx, input.UserID)
		if err != nil {
			return nil, err
		}
		if reservation.Reserved {
			transformed, err := input.Transform(ctx, f.Bytes, *input.TransformOptions)
			if err != nil {
				// Transform failed after a successful reservation: give the
				// slot back and store the original.
				log.Warn("image transform failed, storing original: user=%s err=%v", input.UserID, err)
				if relErr := s.reservations.ReleaseTransformSlot(ctx, input.UserID); relErr != nil {
					log.Error("transform slot release failed: user=%s err=%v", input.UserID, relErr)
				}
			} else {
				data = transformed
			}
		}
	}

	return s.files.PersistFile(ctx, PersistInput{
		UserID:          input.UserID,
		Name:            f.Name,
		MediaType:       f.MediaType,
		Bytes:           data,
		Source:          models.SourceUpload,
		QuotaSizeBytes:  quotaSize,
		OriginMessageID: input.MessageID,
	})
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}
