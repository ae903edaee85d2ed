package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/poolcard/ledger-core/internal/webhook"
	"github.com/poolcard/ledger-core/pkg/httpjson"
)

// WebhookHandler implements the provider webhook endpoints of spec.md §6.
// Fiber never parses the body unless a handler calls BodyParser, so c.Body()
// here is always the untouched raw bytes the signature was computed over.
type WebhookHandler struct {
	Pipeline *webhook.Pipeline
}

func headerMap(c *fiber.Ctx) map[string]string {
	headers := make(map[string]string, c.Request().Header.Len())

	c.Request().Header.VisitAll(func(key, value []byte) {
		headers[string(key)] = string(value)
	})

	return headers
}

// Baas handles POST /webhooks/baas/{provider}.
func (h *WebhookHandler) Baas(c *fiber.Ctx) error {
	providerName := c.Params("provider")

	err := h.Pipeline.Handle(c.Context(), c.Body(), headerMap(c), webhook.ParseGenericEvent(providerName))
	if err != nil {
		return httpjson.WithError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// Synctera handles POST /webhooks/synctera, the dedicated route spec.md §6
// lists alongside the generic /webhooks/baas/{provider} path.
func (h *WebhookHandler) Synctera(c *fiber.Ctx) error {
	err := h.Pipeline.Handle(c.Context(), c.Body(), headerMap(c), webhook.ParseGenericEvent("synctera"))
	if err != nil {
		return httpjson.WithError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
