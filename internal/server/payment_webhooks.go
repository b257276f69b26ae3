package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/emberhollow/storefront/internal/payment/domain"
)

// HandlePaymentWebhook ingests a provider webhook delivery. Ignored event
// types and duplicate deliveries are acked with 200 so providers stop
// retrying them.
func (s *Server) HandlePaymentWebhook(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		err = s.paymentSvc.Ingest(c.Request.Context(), provider, payload, c.Request.Header)
		if err != nil {
			if errors.Is(err, paymentdomain.ErrEventIgnored) ||
				errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
				return
			}
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
