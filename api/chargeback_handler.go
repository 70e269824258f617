package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"bookie/settlement-engine/domain/entities"
)

// signatureHeader carries the provider's HMAC-SHA256 hex digest of the body
const signatureHeader = "X-Signature"

// handleChargebackWebhook processes a payment provider dispute notification.
// The signature is verified over the raw body before anything is parsed.
func (s *Server) handleChargebackWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	signature := c.GetHeader(signatureHeader)
	if err := s.chargebackProcessor.Process(c.Request.Context(), body, signature); err != nil {
		var validationErr *entities.ValidationError
		var conflictErr *entities.StateConflictError

		switch {
		case errors.As(err, &validationErr):
			if validationErr.Field == "signature" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &conflictErr):
			// The wager was already settled through another path. The dispute
			// is acknowledged so the provider stops retrying.
			log.WithError(err).Warn("Chargeback for already-settled wager")
			c.JSON(http.StatusOK, gin.H{"status": "already_handled"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
