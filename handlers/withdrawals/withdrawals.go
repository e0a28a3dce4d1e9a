package withdrawals

import (
	"fmt"
	"net/http"
	"time"

	"earnspark-server/config"
	"earnspark-server/handlers/auth"
	"earnspark-server/models"
	"earnspark-server/pkg/logger"
	"earnspark-server/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler serves withdrawal requests. Requests are recorded and the
// balance debited; the M-Pesa payout itself runs operationally.
type Handler struct {
	config *config.Config
	db     *gorm.DB
	logger *logger.Logger
}

func NewHandler(cfg *config.Config, db *gorm.DB, log *logger.Logger) *Handler {
	return &Handler{config: cfg, db: db, logger: log}
}

// Create handles POST /api/withdrawals.
func (h *Handler) Create(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var input struct {
		Amount      float64 `json:"amount"`
		PhoneNumber string  `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input data."})
		return
	}

	amount := decimal.NewFromFloat(input.Amount)
	if amount.LessThan(h.config.Earnings.WithdrawMinAmount) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Minimum withdrawal amount is %s.", h.config.Earnings.WithdrawMinAmount.String()),
		})
		return
	}

	phone := input.PhoneNumber
	if phone == "" {
		phone = user.PhoneNumber
	}
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone_number is required"})
		return
	}
	phone = utils.NormalizePhoneNumber(phone)

	// Balance floor: the remaining balance may not drop below the
	// configured minimum. The middleware-loaded balance may be stale, so
	// this check only produces the friendly message; the debit below
	// enforces the floor against the live row.
	remaining := user.Balance.Sub(amount)
	if remaining.LessThan(h.config.Earnings.WithdrawMinBalance) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient balance for this withdrawal."})
		return
	}

	withdrawal := models.Withdrawal{
		UserID:      user.ID,
		Reference:   fmt.Sprintf("WDR-%d-%s", time.Now().Unix(), uuid.NewString()[:8]),
		Amount:      amount,
		PhoneNumber: phone,
		Status:      models.WithdrawalPending,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		// Guarded debit; concurrent withdrawals cannot jointly drive the
		// balance below the floor.
		res := tx.Model(&models.User{}).
			Where("id = ? AND balance - ? >= ?", user.ID, amount, h.config.Earnings.WithdrawMinBalance).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrInvalidData
		}
		return tx.Create(&withdrawal).Error
	})
	if err != nil {
		h.logger.WithUserID(user.ID).Error("Failed to create withdrawal", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not process withdrawal. Check your balance and try again."})
		return
	}

	h.logger.WithUserID(user.ID).Info("Withdrawal requested",
		"reference", withdrawal.Reference,
		"amount", amount.String(),
	)

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Withdrawal request received.",
		"withdrawal": withdrawal,
	})
}

// List handles GET /api/withdrawals for the authenticated user.
func (h *Handler) List(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var withdrawals []models.Withdrawal
	if err := h.db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&withdrawals).Error; err != nil {
		h.logger.WithUserID(user.ID).Error("Failed to fetch withdrawals", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve withdrawals."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}
