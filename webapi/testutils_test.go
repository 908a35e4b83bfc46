package webapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/mosaiq/bankfeed/internal/fixtures"
	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/provider"
	"github.com/mosaiq/bankfeed/pkg/registry"
	"github.com/mosaiq/bankfeed/pkg/service/connection"
	"github.com/mosaiq/bankfeed/pkg/webhook"
)

const (
	testJwtSecret     = "test-jwt-secret"
	testWebhookSecret = "test-webhook-secret"
)

// stubAggregator stands in for the aggregation router.
type stubAggregator struct {
	externalID  string
	confirmOK   bool
	healthy     bool
	initiateErr error
	revokeErr   error
}

func (a *stubAggregator) Initiate(_ context.Context, _ string, _ provider.Credentials) (string, error) {
	if a.initiateErr != nil {
		return "", a.initiateErr
	}
	return a.externalID, nil
}

func (a *stubAggregator) Confirm(_ context.Context, _, _ string) (bool, error) {
	return a.confirmOK, nil
}

func (a *stubAggregator) CheckHealth(_ context.Context, _ string) bool { return a.healthy }

func (a *stubAggregator) Revoke(_ context.Context, _ string) (bool, error) {
	if a.revokeErr != nil {
		return false, a.revokeErr
	}
	return true, nil
}

func (a *stubAggregator) IsSupported(code string) bool { return code == "mock-bank" }

func (a *stubAggregator) Providers() []registry.Meta {
	return []registry.Meta{{Code: "mock-bank", DisplayName: "Mock Bank", Enabled: true, Sandbox: true}}
}

// stubSyncer reports success without touching any provider.
type stubSyncer struct{ synced []uuid.UUID }

func (s *stubSyncer) Reconcile(_ context.Context, conn *domain.Connection) domain.SyncResult {
	s.synced = append(s.synced, conn.ID)
	return domain.SyncResult{ConnectionID: conn.ID, Success: true, SyncedAt: time.Now().UTC()}
}

// inlineSubmitter runs webhook dispatch on the caller's goroutine so tests
// observe effects synchronously.
type inlineSubmitter struct{}

func (inlineSubmitter) Submit(task func()) error {
	task()
	return nil
}

// ApiTestSuite boots the fiber app over in-memory storage and stubbed
// provider calls.
type ApiTestSuite struct {
	suite.Suite
	app        *fiber.App
	store      *fixtures.MemoryStore
	uow        *fixtures.MemoryUoW
	aggregator *stubAggregator
	syncer     *stubSyncer
	userID     uuid.UUID
	token      string
}

func (s *ApiTestSuite) SetupTest() {
	s.store = fixtures.NewMemoryStore()
	s.uow = fixtures.NewMemoryUoW(s.store)
	s.aggregator = &stubAggregator{externalID: "mock_ext_1", confirmOK: true, healthy: true}
	s.syncer = &stubSyncer{}
	s.userID = uuid.New()
	s.token = s.signToken(s.userID)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	connSvc := connection.New(s.uow, s.aggregator, s.syncer, logger)
	gateway := webhook.NewGateway(map[string]webhook.Endpoint{
		"mock-bank": {Secret: testWebhookSecret, IDPrefix: "mock"},
	}, s.uow, s.syncer, inlineSubmitter{}, logger)

	cfg := &config.App{
		Auth:      &config.Auth{Jwt: &config.Jwt{Secret: testJwtSecret}},
		RateLimit: &config.RateLimit{MaxRequests: 1000, Window: time.Minute},
	}
	s.app = NewApp(cfg, connSvc, gateway)
}

func (s *ApiTestSuite) signToken(userID uuid.UUID) string {
	return s.signTokenWithExpiry(userID, time.Now().Add(time.Hour))
}

func (s *ApiTestSuite) signTokenWithExpiry(userID uuid.UUID, exp time.Time) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     exp.Unix(),
	})
	signed, err := token.SignedString([]byte(testJwtSecret))
	s.Require().NoError(err)
	return signed
}

func (s *ApiTestSuite) makeRequest(method, target, body, token string) *http.Response {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	return resp
}

// seedActiveConnection puts an ACTIVE connection for the suite's user into
// the store.
func (s *ApiTestSuite) seedActiveConnection(externalID string) domain.Connection {
	now := time.Now().UTC()
	return s.store.SeedConnection(domain.Connection{
		ID:         uuid.New(),
		OwnerID:    s.userID,
		Provider:   "mock-bank",
		ExternalID: externalID,
		Status:     domain.ConnectionActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}
