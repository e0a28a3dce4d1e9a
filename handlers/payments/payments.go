package payments

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"earnspark-server/config"
	"earnspark-server/gateway"
	"earnspark-server/models"
	"earnspark-server/pkg/logger"
	"earnspark-server/store"
	"earnspark-server/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler serves the payment initiation and status endpoints.
type Handler struct {
	config  *config.Config
	gateway gateway.Client
	intents store.IntentStore
	db      *gorm.DB
	logger  *logger.Logger
}

func NewHandler(cfg *config.Config, gw gateway.Client, intents store.IntentStore, db *gorm.DB, log *logger.Logger) *Handler {
	return &Handler{
		config:  cfg,
		gateway: gw,
		intents: intents,
		db:      db,
		logger:  log,
	}
}

type InitiateRequest struct {
	PhoneNumber string   `json:"phoneNumber"`
	Amount      *float64 `json:"amount"`
	Description string   `json:"description"`
	Purpose     string   `json:"purpose"`
}

// newReference builds a unique payment reference. The uuid fragment makes
// collisions a non-event; a duplicate insert is logged, not fatal.
func newReference() string {
	return fmt.Sprintf("ESP-%d-%s", time.Now().Unix(), uuid.NewString()[:8])
}

// Initiate handles POST /api/payments/initiate. It asks the provider for
// an STK push and records a pending intent. Losing the audit row must not
// block the user flow: the provider has already accepted the payment, so
// persistence failures are logged and the caller still gets a success.
func (h *Handler) Initiate(c *gin.Context) {
	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	if req.PhoneNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "phoneNumber is required"})
		return
	}

	if err := h.config.ValidateProvider(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	amount := h.config.Provider.ActivationFee
	if req.Amount != nil {
		amount = decimal.NewFromFloat(*req.Amount)
	}

	purpose := req.Purpose
	if purpose != models.PurposeDeposit {
		purpose = models.PurposeActivation
	}

	description := req.Description
	if description == "" {
		description = "EarnSpark account activation"
	}

	phone := utils.NormalizePhoneNumber(req.PhoneNumber)
	reference := newReference()
	log := h.logger.WithReference(reference)

	result, err := h.gateway.Initiate(c.Request.Context(), gateway.InitiateRequest{
		PhoneNumber: phone,
		Amount:      amount,
		Reference:   reference,
		Description: description,
	})
	if err != nil {
		log.Error("Provider initiation failed", "error", err)
		message := "Payment provider is unavailable, please try again"
		if errors.Is(err, gateway.ErrUnparsable) {
			message = "Payment provider returned an invalid response"
		}
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": message})
		return
	}

	if !result.Accepted || result.TransactionID == "" {
		message := result.Message
		if message == "" {
			message = "Payment request was rejected by the provider"
		}
		log.Warn("Provider rejected initiation", "message", result.Message)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": message})
		return
	}

	intent := &models.PaymentIntent{
		Reference:             reference,
		ProviderTransactionID: &result.TransactionID,
		Status:                models.StatusPending,
		Amount:                amount,
		PhoneNumber:           phone,
		Purpose:               purpose,
	}
	if userID, ok := authenticatedUserID(c, h.config); ok {
		intent.UserID = &userID
	}

	if err := h.intents.Create(intent); err != nil {
		// The push is already on its way; the status endpoint can still
		// reconcile from the provider without the local row.
		log.Error("Failed to persist payment intent", "error", err)
	}

	log.Info("Payment initiated",
		"transaction_id", result.TransactionID,
		"amount", amount.String(),
		"purpose", purpose,
	)

	// All three keys carry the provider transaction id; older clients
	// read different ones.
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"checkoutRequestId":    result.TransactionID,
			"externalReference":    result.TransactionID,
			"transactionRequestId": result.TransactionID,
		},
	})
}

// authenticatedUserID reads an optional bearer token. Initiation is a
// public endpoint; the user link is recorded when available so a
// successful activation payment can flip the account.
func authenticatedUserID(c *gin.Context, cfg *config.Config) (uint, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return 0, false
	}
	userID, err := utils.ExtractUserIDFromToken([]byte(cfg.Auth.JWTSecret), header)
	if err != nil {
		return 0, false
	}
	return userID, true
}
