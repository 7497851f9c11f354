package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/PeterAforo/ghanaland-sub000/internal/database"
	"github.com/PeterAforo/ghanaland-sub000/internal/models"
)

// GetMyNotifications lists the user's notifications, newest first.
func GetMyNotifications(c *fiber.Ctx) error {
	userID := currentUserID(c)

	query := database.DB.Where("user_id = ?", userID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(100).Find(&notifications).Error; err != nil {
		return respondError(c, err)
	}

	var unreadCount int64
	database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unreadCount)

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"unread_count":  unreadCount,
	})
}

// MarkNotificationRead marks one notification as read.
func MarkNotificationRead(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var notification models.Notification
	if err := database.DB.
		Where("id = ? AND user_id = ?", c.Params("id"), userID).
		First(&notification).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Notification not found",
			})
		}
		return respondError(c, err)
	}

	if !notification.IsRead {
		now := time.Now()
		notification.IsRead = true
		notification.ReadAt = &now
		if err := database.DB.Save(&notification).Error; err != nil {
			return respondError(c, err)
		}
	}

	return c.JSON(fiber.Map{
		"notification": notification,
	})
}

// MarkAllNotificationsRead marks everything unread as read.
func MarkAllNotificationsRead(c *fiber.Ctx) error {
	userID := currentUserID(c)
	now := time.Now()

	res := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})
	if res.Error != nil {
		return respondError(c, res.Error)
	}

	return c.JSON(fiber.Map{
		"message": "All notifications marked as read",
		"updated": res.RowsAffected,
	})
}
