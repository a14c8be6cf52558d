package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

type ResolutionKind string

const (
	ResolutionReuse     ResolutionKind = "reuse"
	ResolutionCloneFrom ResolutionKind = "clone"
	ResolutionNew       ResolutionKind = "new"
)

type Resolution struct {
	Kind ResolutionKind `json:"kind"`
	// DocumentID is the caller's existing document for Reuse.
	DocumentID uuid.UUID `json:"document_id,omitempty"`
	// SharedContentID is the other owner's completed document for CloneFrom.
	SharedContentID uuid.UUID `json:"shared_content_id,omitempty"`
}

// Fingerprint is the hex sha256 of the uploaded bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type FingerprintService interface {
	Resolve(dbc dbctx.Context, fingerprint string, ownerID uuid.UUID) (Resolution, error)
}

type fingerprintService struct {
	log  *logger.Logger
	docs repos.DocumentRepo
}

func NewFingerprintService(baseLog *logger.Logger, docs repos.DocumentRepo) FingerprintService {
	return &fingerprintService{
		log:  baseLog.With("service", "FingerprintService"),
		docs: docs,
	}
}

// Resolve only reads. It must run before any reservation.
func (s *fingerprintService) Resolve(dbc dbctx.Context, fingerprint string, ownerID uuid.UUID) (Resolution, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" || ownerID == uuid.Nil {
		return Resolution{}, fmt.Errorf("fingerprint and owner required")
	}
	own, err := s.docs.GetByOwnerAndFingerprint(dbc, ownerID, fingerprint)
	if err != nil {
		return Resolution{}, fmt.Errorf("lookup owner fingerprint: %w", err)
	}
	if own != nil {
		return Resolution{Kind: ResolutionReuse, DocumentID: own.ID}, nil
	}
	shared, err := s.docs.FindCompletedByFingerprint(dbc, fingerprint, ownerID)
	if err != nil {
		return Resolution{}, fmt.Errorf("lookup shared fingerprint: %w", err)
	}
	if shared != nil {
		return Resolution{Kind: ResolutionCloneFrom, SharedContentID: shared.ID}, nil
	}
	return Resolution{Kind: ResolutionNew}, nil
}
