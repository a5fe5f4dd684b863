package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/harsh99/anonqa/internal/models"
)

// NotificationView is a notification enriched with the question it relates
// to, so clients can render "someone wants you to reveal your answer to X".
type NotificationView struct {
	models.Notification
	QuestionID      string `json:"questionId"`
	QuestionContent string `json:"questionContent"`
}

// UnreadNotifications returns the user's unread notifications, newest first.
func (s *Service) UnreadNotifications(userID string) ([]NotificationView, error) {
	views := []NotificationView{}
	err := s.db.Table("notifications").
		Select("notifications.*, questions.id AS question_id, questions.content AS question_content").
		Joins("JOIN answers ON answers.id = notifications.answer_id").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("notifications.user_id = ? AND notifications.read = ?", userID, false).
		Order("notifications.created_at DESC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

// MarkNotificationRead flips read to true. Idempotent: marking an already
// read notification is not an error.
func (s *Service) MarkNotificationRead(notificationID, userID string) error {
	var notif models.Notification
	if err := s.db.First(&notif, "id = ?", notificationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if notif.UserID != userID {
		return ErrForbidden
	}
	if notif.Read {
		return nil
	}
	return s.db.Model(&notif).UpdateColumn("read", true).Error
}
