package withdrawals

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"earnspark-server/config"
	"earnspark-server/handlers/auth"
	"earnspark-server/migrations"
	"earnspark-server/models"
	"earnspark-server/pkg/logger"
	"earnspark-server/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testSetup(t *testing.T) (*gin.Engine, *gorm.DB, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db))

	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret"},
		Earnings: config.EarningsConfig{
			WithdrawMinAmount:  decimal.NewFromInt(100),
			WithdrawMinBalance: decimal.NewFromInt(50),
		},
	}
	h := NewHandler(cfg, db, logger.New("ERROR"))

	r := gin.New()
	protected := r.Group("/api")
	protected.Use(auth.Middleware(cfg, db))
	protected.POST("/withdrawals", h.Create)
	protected.GET("/withdrawals", h.List)
	return r, db, cfg
}

func createUser(t *testing.T, db *gorm.DB, cfg *config.Config, balance int64) (*models.User, string) {
	t.Helper()
	user := &models.User{
		Email:       "jane@example.com",
		Password:    "x",
		PhoneNumber: "254712345678",
		Activated:   true,
		Balance:     decimal.NewFromInt(balance),
	}
	require.NoError(t, db.Create(user).Error)

	token, err := utils.GenerateAccessToken([]byte(cfg.Auth.JWTSecret), user.ID)
	require.NoError(t, err)
	return user, token
}

func postWithdrawal(r *gin.Engine, token string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/withdrawals", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateWithdrawalDebitsBalance(t *testing.T) {
	r, db, cfg := testSetup(t)
	user, token := createUser(t, db, cfg, 500)

	w := postWithdrawal(r, token, map[string]interface{}{"amount": 200})
	require.Equal(t, http.StatusCreated, w.Code)

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(300)), "balance = %s", updated.Balance)

	var withdrawal models.Withdrawal
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&withdrawal).Error)
	assert.Equal(t, models.WithdrawalPending, withdrawal.Status)
	assert.Equal(t, "254712345678", withdrawal.PhoneNumber)
}

func TestCreateWithdrawalBelowMinimumAmount(t *testing.T) {
	r, db, cfg := testSetup(t)
	_, token := createUser(t, db, cfg, 500)

	w := postWithdrawal(r, token, map[string]interface{}{"amount": 50})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateWithdrawalRespectsBalanceFloor(t *testing.T) {
	r, db, cfg := testSetup(t)
	// 200 balance, 50 floor: at most 150 may leave.
	_, token := createUser(t, db, cfg, 200)

	w := postWithdrawal(r, token, map[string]interface{}{"amount": 180})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postWithdrawal(r, token, map[string]interface{}{"amount": 150})
	assert.Equal(t, http.StatusCreated, w.Code)
}

// staleUserRouter mounts Create behind a middleware that injects a
// pre-loaded user row, standing in for an auth load that happened before
// another request debited the balance.
func staleUserRouter(h *Handler, user *models.User) *gin.Engine {
	r := gin.New()
	r.POST("/api/withdrawals", func(c *gin.Context) {
		auth.SetCurrentUser(c, user)
		h.Create(c)
	})
	return r
}

func TestConcurrentWithdrawalsKeepBalanceFloor(t *testing.T) {
	_, db, cfg := testSetup(t)
	h := NewHandler(cfg, db, logger.New("ERROR"))
	user, _ := createUser(t, db, cfg, 200)

	// Both requests loaded the account before either debit ran. Each
	// withdrawal respects the floor on its own snapshot; together they
	// would leave 0 against a floor of 50.
	var first, second models.User
	require.NoError(t, db.First(&first, user.ID).Error)
	require.NoError(t, db.First(&second, user.ID).Error)

	body := map[string]interface{}{"amount": 100}
	raw, _ := json.Marshal(body)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/withdrawals", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	staleUserRouter(h, &first).ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/withdrawals", bytes.NewBuffer(raw))
	req.Header.Set("Content-Type", "application/json")
	staleUserRouter(h, &second).ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(100)), "balance = %s", updated.Balance)
	assert.True(t, updated.Balance.GreaterThanOrEqual(cfg.Earnings.WithdrawMinBalance))
}

func TestCreateWithdrawalRequiresPhone(t *testing.T) {
	r, db, cfg := testSetup(t)
	user, token := createUser(t, db, cfg, 500)
	require.NoError(t, db.Model(user).Update("phone_number", "").Error)

	w := postWithdrawal(r, token, map[string]interface{}{"amount": 200})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListWithdrawalsReturnsOwnHistory(t *testing.T) {
	r, db, cfg := testSetup(t)
	_, token := createUser(t, db, cfg, 500)

	require.Equal(t, http.StatusCreated, postWithdrawal(r, token, map[string]interface{}{"amount": 100}).Code)
	require.Equal(t, http.StatusCreated, postWithdrawal(r, token, map[string]interface{}{"amount": 150}).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/withdrawals", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Withdrawals []models.Withdrawal `json:"withdrawals"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Withdrawals, 2)
}
