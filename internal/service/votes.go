package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/harsh99/anonqa/internal/models"
)

// VoterKey identifies a voter: the authenticated user id when logged in,
// otherwise the caller's IP address. The two identity spaces are disjoint;
// an IP vote and a user vote from the same browser are independent.
type VoterKey struct {
	UserID string
	IP     string
}

func (v VoterKey) valid() bool {
	return v.UserID != "" || v.IP != ""
}

func (v VoterKey) scope(q *gorm.DB) *gorm.DB {
	if v.UserID != "" {
		return q.Where("user_id = ?", v.UserID)
	}
	return q.Where("ip_address = ?", v.IP)
}

func (v VoterKey) row(answerID string) models.Vote {
	vote := models.Vote{AnswerID: answerID}
	if v.UserID != "" {
		uid := v.UserID
		vote.UserID = &uid
	} else {
		ip := v.IP
		vote.IPAddress = &ip
	}
	return vote
}

// CastVote records one upvote for voter on the answer and bumps its counter,
// all in one transaction. Returns the new vote count.
func (s *Service) CastVote(answerID string, voter VoterKey) (int, error) {
	if !voter.valid() {
		return 0, ErrValidation
	}

	var newVotes int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var answer models.Answer
		if err := tx.First(&answer, "id = ?", answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var existing int64
		if err := voter.scope(tx.Model(&models.Vote{}).Where("answer_id = ?", answerID)).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyVoted
		}

		vote := voter.row(answerID)
		if err := tx.Create(&vote).Error; err != nil {
			if isDuplicate(err) {
				return ErrAlreadyVoted
			}
			return err
		}

		if err := tx.Model(&models.Answer{}).Where("id = ?", answerID).
			UpdateColumn("votes", gorm.Expr("votes + 1")).Error; err != nil {
			return err
		}
		newVotes = answer.Votes + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newVotes, nil
}

// RetractVote removes the voter's vote and decrements the counter.
func (s *Service) RetractVote(answerID string, voter VoterKey) (int, error) {
	if !voter.valid() {
		return 0, ErrValidation
	}

	var newVotes int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var answer models.Answer
		if err := tx.First(&answer, "id = ?", answerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		res := voter.scope(tx.Where("answer_id = ?", answerID)).Delete(&models.Vote{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoSuchVote
		}

		if err := tx.Model(&models.Answer{}).Where("id = ?", answerID).
			UpdateColumn("votes", gorm.Expr("votes - 1")).Error; err != nil {
			return err
		}
		newVotes = answer.Votes - 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newVotes, nil
}

// HasVoted reports whether voter already has a vote on the answer.
func (s *Service) HasVoted(answerID string, voter VoterKey) (bool, error) {
	if !voter.valid() {
		return false, nil
	}
	var n int64
	err := voter.scope(s.db.Model(&models.Vote{}).Where("answer_id = ?", answerID)).Count(&n).Error
	return n > 0, err
}

// TopAnswer returns the highest-voted answer for the question, ties broken
// by earliest creation time. Nil when the question has no answers.
func (s *Service) TopAnswer(questionID string) (*models.Answer, error) {
	return topAnswer(s.db, questionID)
}

func topAnswer(tx *gorm.DB, questionID string) (*models.Answer, error) {
	var a models.Answer
	err := tx.Where("question_id = ?", questionID).
		Order("votes DESC, created_at ASC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
