// BankingRoutes registers HTTP routes for bank aggregation operations using
// the Fiber web framework. It covers the connection lifecycle (link, confirm,
// sync, health, revoke), the synced account and transaction views, and the
// provider catalog. All routes except the catalog require a valid user
// context.
//
// Routes:
//   - POST   /api/banking/connections                  : Link a new bank connection for the authenticated user.
//   - GET    /api/banking/connections                  : List the user's bank connections.
//   - GET    /api/banking/connections/:id              : Retrieve one bank connection.
//   - POST   /api/banking/connections/:id/confirm      : Complete strong authentication for a pending connection.
//   - POST   /api/banking/connections/:id/sync         : Reconcile one connection on demand.
//   - GET    /api/banking/connections/:id/health       : Probe the provider-side health of a connection.
//   - DELETE /api/banking/connections/:id              : Revoke a connection and delete its local data.
//   - POST   /api/banking/sync                         : Reconcile all of the user's active connections.
//   - GET    /api/banking/accounts                     : List the user's synced bank accounts.
//   - GET    /api/banking/accounts/:id/transactions    : List an account's transactions, newest first.
//   - GET    /api/banking/providers                    : List the registered bank data providers.

package webapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/pkg/middleware"
	"github.com/mosaiq/bankfeed/pkg/provider"
	"github.com/mosaiq/bankfeed/pkg/service/connection"
)

type ConnectRequest struct {
	Provider string `json:"provider" validate:"required"`
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ConfirmRequest struct {
	Code string `json:"code" validate:"required"`
}

func BankingRoutes(app *fiber.App, connSvc *connection.Service, cfg *config.App) {
	jwt := middleware.JwtProtected(cfg.Auth.Jwt)
	banking := app.Group("/api/banking")

	banking.Post("/connections", jwt, InitiateConnection(connSvc))
	banking.Get("/connections", jwt, ListConnections(connSvc))
	banking.Get("/connections/:id", jwt, GetConnection(connSvc))
	banking.Post("/connections/:id/confirm", jwt, ConfirmConnection(connSvc))
	banking.Post("/connections/:id/sync", jwt, SyncConnection(connSvc))
	banking.Get("/connections/:id/health", jwt, ConnectionHealth(connSvc))
	banking.Delete("/connections/:id", jwt, RevokeConnection(connSvc))
	banking.Post("/sync", jwt, SyncAllConnections(connSvc))
	banking.Get("/accounts", jwt, ListBankAccounts(connSvc))
	banking.Get("/accounts/:id/transactions", jwt, ListBankTransactions(connSvc))
	banking.Get("/providers", ListProviders(connSvc))
}

// InitiateConnection returns a Fiber handler that links a new bank through
// the named provider. The created connection is returned in PENDING state;
// the caller must confirm it before it becomes eligible for sync.
// @Summary Link a new bank connection
// @Description Initiate a bank connection through the chosen data provider
// @Tags banking
// @Accept json
// @Produce json
// @Param request body ConnectRequest true "Provider and bank credentials"
// @Success 201 {object} Response
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /api/banking/connections [post]
// @Security Bearer
func InitiateConnection(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		input, err := BindAndValidate[ConnectRequest](c)
		if err != nil {
			return nil
		}
		conn, err := connSvc.Initiate(c.Context(), userID, input.Provider, provider.Credentials{
			Login:    input.Login,
			Password: input.Password,
		})
		if err != nil {
			log.Errorf("Failed to initiate connection: %v", err)
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to initiate connection", err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(Response{
			Status:  fiber.StatusCreated,
			Message: "Connection initiated",
			Data:    ToConnectionDTO(conn),
		})
	}
}

// ConfirmConnection returns a Fiber handler that completes strong
// authentication for a pending connection. A rejected code yields 422
// without touching the connection.
// @Summary Confirm a pending bank connection
// @Tags banking
// @Accept json
// @Produce json
// @Param id path string true "Connection ID"
// @Param request body ConfirmRequest true "Strong authentication code"
// @Success 200 {object} Response
// @Failure 400 {object} ProblemDetails
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Router /api/banking/connections/{id}/confirm [post]
// @Security Bearer
func ConfirmConnection(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		connectionID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid connection ID", err.Error())
		}
		input, err := BindAndValidate[ConfirmRequest](c)
		if err != nil {
			return nil
		}
		ok, err := connSvc.Confirm(c.Context(), userID, connectionID, input.Code)
		if err != nil {
			log.Errorf("Failed to confirm connection %s: %v", connectionID, err)
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to confirm connection", err.Error())
		}
		if !ok {
			return ErrorResponseJSON(c, fiber.StatusUnprocessableEntity, "Confirmation rejected", "the provider rejected the authentication code")
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Connection confirmed"})
	}
}

// ListConnections returns a Fiber handler listing the user's connections.
// @Summary List bank connections
// @Tags banking
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} ProblemDetails
// @Router /api/banking/connections [get]
// @Security Bearer
func ListConnections(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		conns, err := connSvc.List(c.Context(), userID)
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to list connections", err.Error())
		}
		dtos := make([]*ConnectionDTO, 0, len(conns))
		for _, conn := range conns {
			dtos = append(dtos, ToConnectionDTO(conn))
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Connections", Data: dtos})
	}
}

// GetConnection returns a Fiber handler fetching one of the user's
// connections.
// @Summary Get a bank connection
// @Tags banking
// @Produce json
// @Param id path string true "Connection ID"
// @Success 200 {object} Response
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /api/banking/connections/{id} [get]
// @Security Bearer
func GetConnection(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		connectionID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid connection ID", err.Error())
		}
		conn, err := connSvc.Get(c.Context(), userID, connectionID)
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to get connection", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Connection", Data: ToConnectionDTO(conn)})
	}
}

// SyncConnection returns a Fiber handler reconciling one connection on
// demand. Only ACTIVE connections can be synced; the full sync report is
// returned even when individual accounts failed.
// @Summary Sync one bank connection
// @Tags banking
// @Produce json
// @Param id path string true "Connection ID"
// @Success 200 {object} Response
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 422 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /api/banking/connections/{id}/sync [post]
// @Security Bearer
func SyncConnection(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		connectionID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid connection ID", err.Error())
		}
		result, err := connSvc.Sync(c.Context(), userID, connectionID)
		if err != nil {
			log.Errorf("Failed to sync connection %s: %v", connectionID, err)
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to sync connection", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Sync completed", Data: result})
	}
}

// SyncAllConnections returns a Fiber handler reconciling every ACTIVE
// connection of the user. One failing connection never stops the others;
// per-connection reports are returned.
// @Summary Sync all bank connections
// @Tags banking
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} ProblemDetails
// @Router /api/banking/sync [post]
// @Security Bearer
func SyncAllConnections(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		results, err := connSvc.SyncAll(c.Context(), userID)
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to sync connections", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Sync completed", Data: results})
	}
}

// ConnectionHealth returns a Fiber handler probing a connection's
// provider-side health.
// @Summary Check bank connection health
// @Tags banking
// @Produce json
// @Param id path string true "Connection ID"
// @Success 200 {object} Response
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /api/banking/connections/{id}/health [get]
// @Security Bearer
func ConnectionHealth(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		connectionID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid connection ID", err.Error())
		}
		healthy, err := connSvc.CheckHealth(c.Context(), userID, connectionID)
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to check connection health", err.Error())
		}
		return c.JSON(Response{
			Status:  fiber.StatusOK,
			Message: "Connection health",
			Data:    fiber.Map{"connection_id": connectionID, "healthy": healthy},
		})
	}
}

// RevokeConnection returns a Fiber handler revoking the provider-side
// authorization and deleting the connection with all its accounts and
// transactions. If the provider refuses the revocation the local data is
// kept untouched.
// @Summary Revoke a bank connection
// @Tags banking
// @Produce json
// @Param id path string true "Connection ID"
// @Success 200 {object} Response
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /api/banking/connections/{id} [delete]
// @Security Bearer
func RevokeConnection(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		connectionID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid connection ID", err.Error())
		}
		if err := connSvc.Revoke(c.Context(), userID, connectionID); err != nil {
			log.Errorf("Failed to revoke connection %s: %v", connectionID, err)
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to revoke connection", err.Error())
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Connection revoked"})
	}
}

// ListBankAccounts returns a Fiber handler listing the user's synced bank
// accounts across all connections.
// @Summary List synced bank accounts
// @Tags banking
// @Produce json
// @Success 200 {object} Response
// @Failure 401 {object} ProblemDetails
// @Router /api/banking/accounts [get]
// @Security Bearer
func ListBankAccounts(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		accounts, err := connSvc.ListAccounts(c.Context(), userID)
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to list accounts", err.Error())
		}
		dtos := make([]*BankAccountDTO, 0, len(accounts))
		for _, account := range accounts {
			dtos = append(dtos, ToBankAccountDTO(account))
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Accounts", Data: dtos})
	}
}

// ListBankTransactions returns a Fiber handler listing an account's
// transactions, newest first. An optional limit query caps the page size.
// @Summary List bank account transactions
// @Tags banking
// @Produce json
// @Param id path string true "Account ID"
// @Param limit query int false "Maximum rows to return"
// @Success 200 {object} Response
// @Failure 403 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /api/banking/accounts/{id}/transactions [get]
// @Security Bearer
func ListBankTransactions(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CurrentUserID(c)
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		accountID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid account ID", err.Error())
		}
		limit := 100
		if raw := c.Query("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				return ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid limit", "limit must be a positive integer")
			}
		}
		txns, err := connSvc.ListTransactions(c.Context(), userID, accountID, limit)
		if err != nil {
			return ErrorResponseJSON(c, ErrorToStatusCode(err), "Failed to list transactions", err.Error())
		}
		dtos := make([]*BankTransactionDTO, 0, len(txns))
		for _, tx := range txns {
			dtos = append(dtos, ToBankTransactionDTO(tx))
		}
		return c.JSON(Response{Status: fiber.StatusOK, Message: "Transactions", Data: dtos})
	}
}

// ListProviders returns a Fiber handler listing the registered bank data
// providers. Public: the catalog carries no user data.
// @Summary List bank data providers
// @Tags banking
// @Produce json
// @Success 200 {object} Response
// @Router /api/banking/providers [get]
func ListProviders(connSvc *connection.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(Response{
			Status:  fiber.StatusOK,
			Message: "Providers",
			Data:    connSvc.ListProviders(),
		})
	}
}
