package payments

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"earnspark-server/gateway"
	"earnspark-server/models"
	"earnspark-server/pkg/logger"
	"earnspark-server/store"
	"earnspark-server/utils"

	"github.com/gin-gonic/gin"
)

// Status handles GET /api/payments/status?reference=. It merges the local
// intent row with a fresh provider query and answers the canonical
// status. The endpoint stays useful when the store is down: the
// caller-supplied reference doubles as the provider id and the answer is
// derived from the provider alone.
func (h *Handler) Status(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "reference is required"})
		return
	}

	if err := h.config.ValidateProvider(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	log := h.logger.WithReference(reference)

	intent, err := h.intents.FindByReference(reference)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("Intent lookup failed, continuing with provider only", "error", err)
		intent = nil
	}

	// Finalized intents are answered from the store; no provider call.
	if intent != nil && intent.IsTerminal() {
		c.JSON(http.StatusOK, gin.H{"success": true, "payment": paymentView(intent, nil)})
		return
	}

	transactionID := reference
	if intent != nil && intent.ProviderTransactionID != nil && *intent.ProviderTransactionID != "" {
		transactionID = *intent.ProviderTransactionID
	}

	result, err := h.gateway.QueryStatus(c.Request.Context(), transactionID)
	if err != nil {
		// Inconclusive, not failed. The client polls again.
		log.Warn("Provider status query failed, reporting pending", "error", err)
		c.JSON(http.StatusOK, gin.H{"success": true, "payment": pendingView(intent)})
		return
	}

	status, provider := deriveStatus(result)

	if intent != nil && status.IsTerminal() {
		if err := h.intents.MarkTerminal(intent, status, provider.ReceiptNumber, derefCode(provider), provider.ResultDesc); err != nil {
			// Best-known status still goes to the client; the next poll
			// retries the write.
			log.Error("Failed to persist terminal status", "error", err)
		}
		if status == models.StatusSuccess {
			h.onPaymentSuccess(intent, log)
		}
	}

	if !status.IsTerminal() {
		view := pendingView(intent)
		// Raw provider bodies are operator diagnostics. The deployment
		// must opt in before the query param does anything.
		if h.config.Provider.Debug && c.Query("debug") == "1" {
			view["providerStatus"] = result.TopStatus
			view["providerBody"] = string(result.RawBody)
			view["parsed"] = result.Parsed
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "payment": view})
		return
	}

	if intent != nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "payment": paymentView(intent, provider)})
		return
	}

	// No local row; answer from the provider result alone.
	view := gin.H{
		"status":    statusLabel(status),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if provider != nil {
		if provider.Amount != "" {
			view["amount"] = provider.Amount
		}
		if provider.PhoneNumber != "" {
			view["phoneNumber"] = provider.PhoneNumber
		}
		if provider.ReceiptNumber != "" {
			view["mpesaReceiptNumber"] = provider.ReceiptNumber
		}
		if provider.ResultDesc != "" {
			view["resultDesc"] = provider.ResultDesc
		}
		if provider.ResultCode != nil {
			view["resultCode"] = *provider.ResultCode
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payment": view})
}

// deriveStatus applies the reconciliation policy to a provider status
// result. Only resultCode "0" is authoritative for success; a top-level
// success claim without a result code stays pending.
func deriveStatus(result *gateway.StatusResult) (models.PaymentStatus, *gateway.ProviderResult) {
	if result == nil || !result.Parsed || result.Result == nil {
		return models.StatusPending, nil
	}

	provider := result.Result
	if provider.ResultCode == nil {
		// An unqualified "success" string is not trusted.
		return models.StatusPending, provider
	}
	if *provider.ResultCode == "0" {
		return models.StatusSuccess, provider
	}
	return models.StatusFailed, provider
}

// onPaymentSuccess applies the activation side effects of a successful
// payment. All failures here are secondary and logged only.
func (h *Handler) onPaymentSuccess(intent *models.PaymentIntent, log *logger.Logger) {
	if intent.Purpose != models.PurposeActivation || intent.UserID == nil {
		return
	}

	var user models.User
	if err := h.db.First(&user, *intent.UserID).Error; err != nil {
		log.Error("Failed to load user for activation", "error", err)
		return
	}
	if user.Activated {
		return
	}

	if err := h.db.Model(&user).Update("activated", true).Error; err != nil {
		log.Error("Failed to activate user", "error", err)
		return
	}

	if user.PushToken != "" {
		utils.SendPushNotification(user.PushToken, "Account activated", "Your EarnSpark account is now active.")
	}
}

func statusLabel(status models.PaymentStatus) string {
	return strings.ToUpper(string(status))
}

func derefCode(provider *gateway.ProviderResult) string {
	if provider == nil || provider.ResultCode == nil {
		return ""
	}
	return *provider.ResultCode
}

// paymentView renders a terminal intent for the response envelope,
// preferring stored values and filling receipt details from the provider
// result when the store write has not landed yet.
func paymentView(intent *models.PaymentIntent, provider *gateway.ProviderResult) gin.H {
	view := gin.H{
		"status":      statusLabel(intent.Status),
		"amount":      intent.Amount,
		"phoneNumber": intent.PhoneNumber,
		"timestamp":   intent.UpdatedAt.Format(time.RFC3339),
	}

	receipt := intent.MpesaReceiptNumber
	code := intent.ProviderResultCode
	desc := intent.ProviderResultDescription
	if provider != nil {
		if receipt == nil && provider.ReceiptNumber != "" {
			receipt = &provider.ReceiptNumber
		}
		if code == nil && provider.ResultCode != nil {
			code = provider.ResultCode
		}
		if desc == nil && provider.ResultDesc != "" {
			desc = &provider.ResultDesc
		}
	}
	if receipt != nil {
		view["mpesaReceiptNumber"] = *receipt
	}
	if code != nil {
		view["resultCode"] = *code
	}
	if desc != nil {
		view["resultDesc"] = *desc
	}
	return view
}

// pendingView renders a still-pending answer, with intent details when a
// local row exists.
func pendingView(intent *models.PaymentIntent) gin.H {
	view := gin.H{
		"status":    "PENDING",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if intent != nil {
		view["amount"] = intent.Amount
		view["phoneNumber"] = intent.PhoneNumber
	}
	return view
}
