package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/harsh99/anonqa/internal/models"
)

// RequestReveal asks the answer's author to reveal themselves. Eligibility
// is enforced here, not in any client: the answer must currently be the top
// answer of its question, must still be anonymous, and the requester must
// not be its author. Inserts the request and the author's notification in
// one transaction.
func (s *Service) RequestReveal(answerID, requesterID string) (*models.RevealRequest, *models.Notification, error) {
	var (
		req   models.RevealRequest
		notif models.Notification
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var answer models.Answer
		if err := tx.First(&answer, "id = ?", answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if answer.RevealStatus {
			return ErrAlreadyRevealed
		}
		if answer.UserID == "" {
			// Legacy anonymous insert: there is no identity to reveal.
			return ErrNotEligible
		}
		if answer.UserID == requesterID {
			return ErrOwnAnswer
		}

		top, err := topAnswer(tx, answer.QuestionID)
		if err != nil {
			return err
		}
		if top == nil || top.ID != answer.ID {
			return ErrNotEligible
		}

		var existing int64
		if err := tx.Model(&models.RevealRequest{}).
			Where("answer_id = ? AND requested_by = ?", answerID, requesterID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyRequested
		}

		req = models.RevealRequest{AnswerID: answerID, RequestedBy: requesterID}
		if err := tx.Create(&req).Error; err != nil {
			if isDuplicate(err) {
				return ErrAlreadyRequested
			}
			return err
		}

		notif = models.Notification{
			UserID:   answer.UserID,
			AnswerID: answerID,
			Type:     models.NotificationRevealRequest,
		}
		return tx.Create(&notif).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &req, &notif, nil
}

// CancelRevealRequest withdraws the requester's pending request and removes
// one matching unread notification from the author's queue.
func (s *Service) CancelRevealRequest(answerID, requesterID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("answer_id = ? AND requested_by = ?", answerID, requesterID).
			Delete(&models.RevealRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoSuchRequest
		}

		var notif models.Notification
		err := tx.Where("answer_id = ? AND type = ? AND read = ?",
			answerID, models.NotificationRevealRequest, false).
			Order("created_at DESC").
			First(&notif).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Already consumed; nothing left to retract.
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Delete(&notif).Error
	})
}

// RevealIdentity flips the answer's reveal status. Author only, one-way.
func (s *Service) RevealIdentity(answerID, callerID string) (*models.Answer, error) {
	var answer models.Answer
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&answer, "id = ?", answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if answer.UserID != callerID {
			return ErrForbidden
		}
		if answer.RevealStatus {
			return ErrAlreadyRevealed
		}

		now := time.Now().UTC()
		if err := tx.Model(&answer).Updates(map[string]any{
			"reveal_status": true,
			"revealed_at":   now,
		}).Error; err != nil {
			return err
		}
		answer.RevealStatus = true
		answer.RevealedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// RevealRequestCount returns how many users are waiting on the answer.
func (s *Service) RevealRequestCount(answerID string) (int64, error) {
	var n int64
	err := s.db.Model(&models.RevealRequest{}).Where("answer_id = ?", answerID).Count(&n).Error
	return n, err
}

// HasRequestedReveal reports whether the user already has a pending request.
func (s *Service) HasRequestedReveal(answerID, userID string) (bool, error) {
	var n int64
	err := s.db.Model(&models.RevealRequest{}).
		Where("answer_id = ? AND requested_by = ?", answerID, userID).
		Count(&n).Error
	return n > 0, err
}
