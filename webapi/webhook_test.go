package webapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/webhook"
)

type WebhookApiTestSuite struct {
	ApiTestSuite
}

func TestWebhookApiTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookApiTestSuite))
}

func (s *WebhookApiTestSuite) postEvent(providerCode, body, signature string) *http.Response {
	req := httptest.NewRequest(http.MethodPost, "/api/banking/webhooks/"+providerCode, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	return resp
}

func (s *WebhookApiTestSuite) TestSignedEventAccepted() {
	conn := s.seedActiveConnection("mock_ext_7")
	body := `{"type":"connection.synced","connection_id":"mock_ext_7"}`

	resp := s.postEvent("mock-bank", body, webhook.Sign([]byte(body), testWebhookSecret))
	defer resp.Body.Close() //nolint:errcheck
	s.Require().Equal(fiber.StatusAccepted, resp.StatusCode)
	s.Assert().Equal([]uuid.UUID{conn.ID}, s.syncer.synced)
}

func (s *WebhookApiTestSuite) TestTamperedSignatureRejected() {
	s.seedActiveConnection("mock_ext_7")
	body := `{"type":"connection.synced","connection_id":"mock_ext_7"}`

	resp := s.postEvent("mock-bank", body, webhook.Sign([]byte(body), "wrong-secret"))
	defer resp.Body.Close() //nolint:errcheck
	s.Assert().Equal(fiber.StatusUnauthorized, resp.StatusCode)
	s.Assert().Empty(s.syncer.synced)
}

func (s *WebhookApiTestSuite) TestMissingSignatureRejected() {
	body := `{"type":"connection.synced","connection_id":"mock_ext_7"}`
	resp := s.postEvent("mock-bank", body, "")
	defer resp.Body.Close() //nolint:errcheck
	s.Assert().Equal(fiber.StatusUnauthorized, resp.StatusCode)
}

func (s *WebhookApiTestSuite) TestUnknownProviderRejected() {
	body := `{"type":"connection.synced","connection_id":"x"}`
	resp := s.postEvent("no-such-bank", body, webhook.Sign([]byte(body), testWebhookSecret))
	defer resp.Body.Close() //nolint:errcheck
	s.Assert().Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func (s *WebhookApiTestSuite) TestMalformedPayloadRejected() {
	body := `{not json`
	resp := s.postEvent("mock-bank", body, webhook.Sign([]byte(body), testWebhookSecret))
	defer resp.Body.Close() //nolint:errcheck
	s.Assert().Equal(fiber.StatusBadRequest, resp.StatusCode)
}

func (s *WebhookApiTestSuite) TestErrorEventFlipsStatus() {
	conn := s.seedActiveConnection("mock_ext_8")
	body := `{"type":"connection.error","connection_id":"mock_ext_8","error":"wrongpass"}`

	resp := s.postEvent("mock-bank", body, webhook.Sign([]byte(body), testWebhookSecret))
	defer resp.Body.Close() //nolint:errcheck
	s.Require().Equal(fiber.StatusAccepted, resp.StatusCode)
	s.Assert().Equal(domain.ConnectionError, s.store.Connections[conn.ID].Status)
}

func (s *WebhookApiTestSuite) TestHealthProbe() {
	req := httptest.NewRequest(http.MethodGet, "/api/banking/webhooks/health", nil)
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck
	s.Assert().Equal(fiber.StatusOK, resp.StatusCode)
}
