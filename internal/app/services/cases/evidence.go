package cases

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/R3E-Network/sira_platform/internal/app/core/service"
	"github.com/R3E-Network/sira_platform/internal/app/domain/casefile"
	"github.com/R3E-Network/sira_platform/internal/app/domain/user"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

// EvidenceRequest registers evidence held elsewhere.
type EvidenceRequest struct {
	CaseID           int64  `json:"case_id"`
	EvidenceType     string `json:"evidence_type"`
	FileRef          string `json:"file_ref"`
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`
	MimeType         string `json:"mime_type"`
	Metadata         string `json:"metadata"`
	Notes            string `json:"notes"`
}

// Upload is an evidence file received from a client.
type Upload struct {
	CaseID       int64
	EvidenceType string
	Description  string
	Filename     string
	MimeType     string
	Body         io.Reader
}

// ListEvidence returns the evidence of a case, newest first.
func (s *Service) ListEvidence(ctx context.Context, caseID int64) ([]casefile.Evidence, error) {
	if _, err := s.Get(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.ListEvidence(ctx, caseID)
}

func (s *Service) GetEvidence(ctx context.Context, id int64) (casefile.Evidence, error) {
	e, err := s.store.GetEvidence(ctx, id)
	return e, service.Translate(err, "Evidence")
}

// AddEvidence records evidence by reference. The hash is taken over the
// reference itself.
func (s *Service) AddEvidence(ctx context.Context, actor user.User, req EvidenceRequest) (casefile.Evidence, error) {
	if !casefile.ValidEvidenceType(req.EvidenceType) {
		return casefile.Evidence{}, apperrors.Validation("evidence_type must be one of IoT, photo, video, document, audio, log")
	}
	if strings.TrimSpace(req.FileRef) == "" {
		return casefile.Evidence{}, apperrors.Validation("file_ref is required")
	}
	if _, err := s.Get(ctx, req.CaseID); err != nil {
		return casefile.Evidence{}, err
	}
	e, err := s.store.CreateEvidence(ctx, casefile.Evidence{
		CaseID:             req.CaseID,
		EvidenceType:       req.EvidenceType,
		FileRef:            req.FileRef,
		OriginalFilename:   req.OriginalFilename,
		FileSize:           req.FileSize,
		MimeType:           req.MimeType,
		EvidenceMetadata:   req.Metadata,
		Notes:              req.Notes,
		VerificationStatus: casefile.VerificationPending,
		FileHash:           HashRef(req.FileRef),
		UploadedBy:         &actor.ID,
		CreatedAt:          s.now(),
	})
	if err != nil {
		return casefile.Evidence{}, service.Translate(err, "Evidence")
	}
	s.log.WithField("evidence_id", e.ID).WithField("case_id", req.CaseID).Info("evidence created")
	return e, nil
}

// MaxUploadBytes is the largest evidence file UploadEvidence accepts.
func (s *Service) MaxUploadBytes() int64 {
	if s.files == nil {
		return DefaultMaxUploadBytes
	}
	return s.files.MaxBytes()
}

// UploadEvidence stores the file body and records it against the case.
func (s *Service) UploadEvidence(ctx context.Context, actor user.User, up Upload) (casefile.Evidence, error) {
	if s.files == nil {
		return casefile.Evidence{}, apperrors.BadRequest("Evidence uploads are not enabled")
	}
	if up.EvidenceType == "" {
		up.EvidenceType = "document"
	}
	if !casefile.ValidEvidenceType(up.EvidenceType) {
		return casefile.Evidence{}, apperrors.Validation("evidence_type must be one of IoT, photo, video, document, audio, log")
	}
	if _, err := s.Get(ctx, up.CaseID); err != nil {
		return casefile.Evidence{}, err
	}
	now := s.now()
	stored, err := s.files.Save(up.CaseID, up.Filename, up.Body, now)
	if err != nil {
		var tooLarge ErrTooLarge
		if errors.As(err, &tooLarge) {
			return casefile.Evidence{}, apperrors.BadRequest(tooLarge.Error())
		}
		return casefile.Evidence{}, apperrors.Internal("failed to store upload", err)
	}

	meta, _ := json.Marshal(map[string]string{
		"uploader":    actor.Username,
		"upload_time": now.Format("2006-01-02T15:04:05.000000Z07:00"),
	})
	e, err := s.store.CreateEvidence(ctx, casefile.Evidence{
		CaseID:             up.CaseID,
		EvidenceType:       up.EvidenceType,
		FileRef:            stored.Path,
		OriginalFilename:   up.Filename,
		FileSize:           stored.Size,
		MimeType:           up.MimeType,
		EvidenceMetadata:   string(meta),
		Notes:              up.Description,
		VerificationStatus: casefile.VerificationPending,
		FileHash:           stored.Hash,
		UploadedBy:         &actor.ID,
		CreatedAt:          now,
	})
	if err != nil {
		_ = s.files.Remove(stored.Path)
		return casefile.Evidence{}, service.Translate(err, "Evidence")
	}
	s.log.WithField("evidence_id", e.ID).WithField("case_id", up.CaseID).Infof("evidence uploaded: %s", up.Filename)
	return e, nil
}

// VerifyEvidence records a verification decision. Notes are appended.
func (s *Service) VerifyEvidence(ctx context.Context, actor user.User, id int64, status, notes string) (casefile.Evidence, error) {
	if status != casefile.VerificationVerified && status != casefile.VerificationRejected {
		return casefile.Evidence{}, apperrors.Validation("verification_status must be verified or rejected")
	}
	e, err := s.GetEvidence(ctx, id)
	if err != nil {
		return casefile.Evidence{}, err
	}
	now := s.now()
	e.VerificationStatus = status
	e.VerifiedBy = &actor.ID
	e.VerifiedAt = &now
	if notes != "" {
		e.Notes = e.Notes + "\n[Verification]: " + notes
	}
	saved, err := s.store.UpdateEvidence(ctx, e)
	if err != nil {
		return casefile.Evidence{}, service.Translate(err, "Evidence")
	}
	s.log.WithField("evidence_id", id).Infof("evidence %s by %s", status, actor.Username)
	return saved, nil
}

// DeleteEvidence removes the record and any uploaded file.
func (s *Service) DeleteEvidence(ctx context.Context, actor user.User, id int64) error {
	e, err := s.GetEvidence(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEvidence(ctx, id); err != nil {
		return service.Translate(err, "Evidence")
	}
	if s.files != nil {
		if err := s.files.Remove(e.FileRef); err != nil {
			s.log.WithError(err).WithField("evidence_id", id).Warn("remove evidence file failed")
		}
	}
	s.log.WithField("evidence_id", id).Infof("evidence deleted by %s", actor.Username)
	return nil
}
