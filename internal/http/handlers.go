package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harsh99/anonqa/internal/service"
	"github.com/harsh99/anonqa/internal/ws"
)

// --- Configuration Constants ---
const (
	maxContentLength = 1000
	rateLimitRPS     = 1.0 / 3.0 // 1 write every 3 seconds per IP
	rateLimitBurst   = 2
)

// --- Structs for request binding ---
type CreateQuestionInput struct {
	Content string `json:"content" binding:"required,min=1,max=1000"`
}
type CreateAnswerInput struct {
	QuestionID string `json:"questionId" binding:"required"`
	Content    string `json:"content" binding:"required,min=1,max=1000"`
}
type UpvoteInput struct {
	AnswerID string `json:"answerId" binding:"required"`
}

// --- Handlers ---
type Env struct {
	Svc       *service.Service
	Hub       *ws.Hub
	JWTSecret []byte
}

// fail maps expected service errors onto HTTP statuses and hides store
// failures behind a generic message.
func (e *Env) fail(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrOwnAnswer):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrNoSuchVote),
		errors.Is(err, service.ErrNoSuchRequest):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyVoted),
		errors.Is(err, service.ErrAlreadyRequested),
		errors.Is(err, service.ErrAlreadyRevealed),
		errors.Is(err, service.ErrNotEligible),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("Error in %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func (e *Env) voterKey(c *gin.Context) service.VoterKey {
	return service.VoterKey{UserID: currentUserID(c), IP: c.ClientIP()}
}

// --- Questions ---

func (e *Env) CreateQuestion(c *gin.Context) {
	var input CreateQuestionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	question, err := e.Svc.CreateQuestion(currentUserID(c), input.Content)
	if err != nil {
		e.fail(c, err, "create question")
		return
	}

	e.Hub.BroadcastEvent(ws.Event{Type: "new_question", Data: question})
	c.JSON(http.StatusCreated, question)
}

func (e *Env) GetMyQuestions(c *gin.Context) {
	questions, err := e.Svc.MyQuestions(currentUserID(c))
	if err != nil {
		e.fail(c, err, "fetch questions")
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (e *Env) GetFeed(c *gin.Context) {
	items, err := e.Svc.Feed()
	if err != nil {
		e.fail(c, err, "fetch feed")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (e *Env) GetQuestion(c *gin.Context) {
	detail, err := e.Svc.GetQuestionDetail(c.Param("id"), e.voterKey(c))
	if err != nil {
		e.fail(c, err, "fetch question")
		return
	}
	c.JSON(http.StatusOK, detail)
}

// --- Answers ---

func (e *Env) CreateAnswer(c *gin.Context) {
	var input CreateAnswerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing questionId or content"})
		return
	}

	answer, err := e.Svc.CreateAnswer(input.QuestionID, currentUserID(c), input.Content)
	if err != nil {
		e.fail(c, err, "create answer")
		return
	}

	e.Hub.BroadcastEvent(ws.Event{Type: "new_answer", Data: gin.H{
		"questionId": answer.QuestionID,
		"answerId":   answer.ID,
	}})
	c.JSON(http.StatusCreated, answer)
}

// --- Votes ---

func (e *Env) Upvote(c *gin.Context) {
	var input UpvoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	votes, err := e.Svc.CastVote(input.AnswerID, e.voterKey(c))
	if err != nil {
		e.fail(c, err, "cast vote")
		return
	}

	payload := gin.H{"answerId": input.AnswerID, "votes": votes}
	e.Hub.BroadcastEvent(ws.Event{Type: "vote", Data: payload})
	c.JSON(http.StatusOK, payload)
}

func (e *Env) RemoveUpvote(c *gin.Context) {
	var input UpvoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	votes, err := e.Svc.RetractVote(input.AnswerID, e.voterKey(c))
	if err != nil {
		e.fail(c, err, "retract vote")
		return
	}

	payload := gin.H{"answerId": input.AnswerID, "votes": votes}
	e.Hub.BroadcastEvent(ws.Event{Type: "vote", Data: payload})
	c.JSON(http.StatusOK, payload)
}

// --- Reveal workflow ---

func (e *Env) RequestReveal(c *gin.Context) {
	answerID := c.Param("id")

	req, notif, err := e.Svc.RequestReveal(answerID, currentUserID(c))
	if err != nil {
		e.fail(c, err, "request reveal")
		return
	}

	// Refresh hint for the author's open sessions only.
	e.Hub.SendToUser(notif.UserID, ws.Event{Type: "notification", Data: notif})
	c.JSON(http.StatusCreated, req)
}

func (e *Env) CancelRevealRequest(c *gin.Context) {
	answerID := c.Param("id")

	if err := e.Svc.CancelRevealRequest(answerID, currentUserID(c)); err != nil {
		e.fail(c, err, "cancel reveal request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reveal request withdrawn"})
}

func (e *Env) RevealIdentity(c *gin.Context) {
	answerID := c.Param("id")

	answer, err := e.Svc.RevealIdentity(answerID, currentUserID(c))
	if err != nil {
		e.fail(c, err, "reveal identity")
		return
	}

	e.Hub.BroadcastEvent(ws.Event{Type: "reveal", Data: gin.H{"answerId": answer.ID}})
	c.JSON(http.StatusOK, answer)
}

// --- Notifications ---

func (e *Env) GetNotifications(c *gin.Context) {
	views, err := e.Svc.UnreadNotifications(currentUserID(c))
	if err != nil {
		e.fail(c, err, "fetch notifications")
		return
	}
	c.JSON(http.StatusOK, views)
}

func (e *Env) MarkNotificationRead(c *gin.Context) {
	if err := e.Svc.MarkNotificationRead(c.Param("id"), currentUserID(c)); err != nil {
		e.fail(c, err, "mark notification read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

// --- Leaderboard ---

func (e *Env) GetLeaderboard(c *gin.Context) {
	month := time.Now().UTC()
	if raw := c.Query("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be formatted YYYY-MM"})
			return
		}
		month = parsed
	}

	rows, err := e.Svc.MonthlyLeaderboard(month)
	if err != nil {
		e.fail(c, err, "fetch leaderboard")
		return
	}
	c.JSON(http.StatusOK, rows)
}
