package service

import (
	"errors"

	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

// Translate maps storage sentinels to service errors naming entity, e.g.
// "Alert not found". Other errors pass through unchanged.
func Translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case apperrors.GetServiceError(err) != nil:
		return err
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.NotFound(entity + " not found")
	case errors.Is(err, storage.ErrConflict):
		return apperrors.Conflict(entity + " already exists")
	default:
		return err
	}
}
