package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/harsh99/anonqa/internal/models"
)

const feedLimit = 50

// FeedItem is one row of the public question feed: the question plus its
// current top answer, if any.
type FeedItem struct {
	Question         models.Question `json:"question"`
	AnswerCount      int64           `json:"answerCount"`
	TopAnswerContent string          `json:"topAnswerContent,omitempty"`
}

// AnswerView is an answer enriched for the question detail page.
type AnswerView struct {
	models.Answer
	AuthorName         string `json:"authorName,omitempty"` // set only once revealed
	Voted              bool   `json:"voted"`
	IsTop              bool   `json:"isTop"`
	RevealRequestCount int64  `json:"revealRequestCount"`
	RevealRequested    bool   `json:"revealRequested"`
}

// QuestionDetail is everything the question page needs in one response.
type QuestionDetail struct {
	Question models.Question `json:"question"`
	Answers  []AnswerView    `json:"answers"`
}

// CreateQuestion stores a new question owned by userID.
func (s *Service) CreateQuestion(userID, content string) (*models.Question, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrValidation
	}
	q := models.Question{Content: content, UserID: userID}
	if err := s.db.Create(&q).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// MyQuestions lists the caller's own questions, newest first.
func (s *Service) MyQuestions(userID string) ([]models.Question, error) {
	questions := []models.Question{}
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// CreateAnswer stores a new anonymous answer to an existing question.
func (s *Service) CreateAnswer(questionID, userID, content string) (*models.Answer, error) {
	content = strings.TrimSpace(content)
	if questionID == "" || content == "" {
		return nil, ErrValidation
	}

	var question models.Question
	if err := s.db.First(&question, "id = ?", questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	a := models.Answer{QuestionID: questionID, UserID: userID, Content: content}
	if err := s.db.Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// Feed returns the newest questions with their answer counts and top-answer
// content, mirroring what the original exposed as a database view.
func (s *Service) Feed() ([]FeedItem, error) {
	questions := []models.Question{}
	if err := s.db.Order("created_at DESC").Limit(feedLimit).Find(&questions).Error; err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return []FeedItem{}, nil
	}

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	answers := []models.Answer{}
	if err := s.db.Where("question_id IN ?", ids).
		Order("votes DESC, created_at ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	counts := map[string]int64{}
	top := map[string]string{}
	for _, a := range answers {
		counts[a.QuestionID]++
		// Answers arrive best-first, so the first seen per question is top.
		if _, ok := top[a.QuestionID]; !ok {
			top[a.QuestionID] = a.Content
		}
	}

	items := make([]FeedItem, len(questions))
	for i, q := range questions {
		items[i] = FeedItem{
			Question:         q,
			AnswerCount:      counts[q.ID],
			TopAnswerContent: top[q.ID],
		}
	}
	return items, nil
}

// GetQuestionDetail loads a question with its answers enriched for the
// viewer: vote counts, whether the viewer voted, which answer is top, and
// the reveal-request state of the top answer.
func (s *Service) GetQuestionDetail(questionID string, viewer VoterKey) (*QuestionDetail, error) {
	var question models.Question
	if err := s.db.First(&question, "id = ?", questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	answers := []models.Answer{}
	if err := s.db.Where("question_id = ?", questionID).
		Order("votes DESC, created_at ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	detail := &QuestionDetail{Question: question, Answers: make([]AnswerView, 0, len(answers))}
	if len(answers) == 0 {
		return detail, nil
	}

	answerIDs := make([]string, len(answers))
	authorIDs := make([]string, 0, len(answers))
	for i, a := range answers {
		answerIDs[i] = a.ID
		if a.RevealStatus && a.UserID != "" {
			authorIDs = append(authorIDs, a.UserID)
		}
	}

	voted := map[string]bool{}
	if viewer.valid() {
		votes := []models.Vote{}
		if err := viewer.scope(s.db.Where("answer_id IN ?", answerIDs)).
			Find(&votes).Error; err != nil {
			return nil, err
		}
		for _, v := range votes {
			voted[v.AnswerID] = true
		}
	}

	authors := map[string]string{}
	if len(authorIDs) > 0 {
		users := []models.User{}
		if err := s.db.Where("id IN ?", authorIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			authors[u.ID] = u.Username
		}
	}

	// Answers are ordered best-first, so index 0 is the top answer.
	topID := answers[0].ID

	var requestCount int64
	requested := false
	if !answers[0].RevealStatus {
		var err error
		if requestCount, err = s.RevealRequestCount(topID); err != nil {
			return nil, err
		}
		if viewer.UserID != "" {
			if requested, err = s.HasRequestedReveal(topID, viewer.UserID); err != nil {
				return nil, err
			}
		}
	}

	for _, a := range answers {
		view := AnswerView{
			Answer: a,
			Voted:  voted[a.ID],
			IsTop:  a.ID == topID,
		}
		if a.RevealStatus {
			view.AuthorName = authors[a.UserID]
		}
		if a.ID == topID {
			view.RevealRequestCount = requestCount
			view.RevealRequested = requested
		}
		detail.Answers = append(detail.Answers, view)
	}
	return detail, nil
}
