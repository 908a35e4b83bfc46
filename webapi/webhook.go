// WebhookRoutes registers the inbound webhook endpoints the bank data
// providers push events to. These routes are authenticated by HMAC
// signature, not by JWT: providers sign the raw body with the shared
// webhook secret.
//
// Routes:
//   - POST /api/banking/webhooks/:provider : Receive a provider event.
//   - GET  /api/banking/webhooks/health    : Liveness probe for provider dashboards.

package webapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/scheduler"
	"github.com/mosaiq/bankfeed/pkg/webhook"
)

const signatureHeader = "X-Webhook-Signature"

func WebhookRoutes(app *fiber.App, gateway *webhook.Gateway) {
	webhooks := app.Group("/api/banking/webhooks")
	webhooks.Get("/health", WebhookHealth())
	webhooks.Post("/:provider", ReceiveWebhook(gateway))
}

// ReceiveWebhook returns a Fiber handler that verifies and enqueues one
// provider event. The response is written as soon as the event is accepted;
// reconciliation runs on the background worker pool.
// @Summary Receive a provider webhook event
// @Tags webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Provider code"
// @Param X-Webhook-Signature header string true "HMAC-SHA256 hex signature of the raw body"
// @Success 202 {object} Response
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /api/banking/webhooks/{provider} [post]
func ReceiveWebhook(gateway *webhook.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		providerCode := c.Params("provider")
		// Raw bytes, not the parsed body: the signature covers the exact
		// payload the provider sent.
		body := c.Body()
		signature := c.Get(signatureHeader)

		err := gateway.Handle(c.Context(), providerCode, body, signature)
		switch {
		case err == nil:
			return c.Status(fiber.StatusAccepted).JSON(Response{
				Status:  fiber.StatusAccepted,
				Message: "Event accepted",
			})
		case errors.Is(err, domain.ErrWebhookVerification):
			log.Warnf("Rejected webhook for %s: invalid signature", providerCode)
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "Invalid signature", err.Error())
		case errors.Is(err, domain.ErrUnsupportedProvider):
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Unknown provider", err.Error())
		case errors.Is(err, scheduler.ErrQueueFull), errors.Is(err, scheduler.ErrPoolClosed):
			return ErrorResponseJSON(c, fiber.StatusServiceUnavailable, "Overloaded", "event queue is full, retry later")
		default:
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid event", err.Error())
		}
	}
}

// WebhookHealth returns a liveness probe handler for provider dashboards.
func WebhookHealth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP", "service": "banking-webhooks"})
	}
}
