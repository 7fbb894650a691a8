package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/docuchat/docuchat-backend/internal/pkg/errors"
)

// RespondDomainError maps collaborator sentinels to HTTP statuses. Unknown
// errors come back as 500.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, pkgerrors.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, pkgerrors.ErrDocumentNotFound):
		RespondError(c, http.StatusNotFound, "document_not_found", err)
	case errors.Is(err, pkgerrors.ErrFetchFailed):
		RespondError(c, http.StatusBadGateway, "fetch_failed", err)
	case errors.Is(err, pkgerrors.ErrEmbeddingFailed):
		RespondError(c, http.StatusBadGateway, "embedding_failed", err)
	case errors.Is(err, pkgerrors.ErrCompletionFailed):
		RespondError(c, http.StatusBadGateway, "completion_failed", err)
	case errors.Is(err, pkgerrors.ErrStoreUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "store_unavailable", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
