package tasks

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"earnspark-server/handlers/auth"
	"earnspark-server/models"
	"earnspark-server/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler serves the task catalogue and completions.
type Handler struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewHandler(db *gorm.DB, log *logger.Logger) *Handler {
	return &Handler{db: db, logger: log}
}

// List handles GET /api/tasks.
func (h *Handler) List(c *gin.Context) {
	var tasks []models.Task
	if err := h.db.Where("active = ?", true).Order("created_at DESC").Find(&tasks).Error; err != nil {
		h.logger.Error("Failed to fetch tasks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Complete handles POST /api/tasks/:id/complete. The account must be
// activated; each task pays out once per user.
func (h *Handler) Complete(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if !user.Activated {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is not activated. Complete the activation payment first."})
		return
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task id"})
		return
	}

	var task models.Task
	if err := h.db.First(&task, uint(taskID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		h.logger.Error("Failed to fetch task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task."})
		return
	}

	if !task.Active {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task is no longer available"})
		return
	}

	// Completion row and balance credit move together. The unique index
	// on (user_id, task_id) is the once-per-task authority; a duplicate
	// insert surfaces here even when two requests race.
	err = h.db.Transaction(func(tx *gorm.DB) error {
		completion := models.TaskCompletion{
			UserID:         user.ID,
			TaskID:         task.ID,
			RewardedAmount: task.Reward,
		}
		if err := tx.Create(&completion).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("balance", gorm.Expr("balance + ?", task.Reward)).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Task already completed"})
			return
		}
		h.logger.WithUserID(user.ID).Error("Failed to record task completion", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record completion."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task completed.",
		"reward":  task.Reward,
	})
}

// isDuplicateKey reports whether err is a unique-constraint violation.
// Covers gorm's translated error plus the raw MySQL and SQLite messages.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
