package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/harsh99/anonqa/internal/models"
	"github.com/harsh99/anonqa/internal/ws"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))

	hub := ws.NewHub()
	go hub.Run()

	router := gin.New()
	SetupRoutes(router, db, hub)
	return router
}

// doJSON performs a request against the router. ip becomes the client IP,
// which matters for anonymous voting and rate limiting.
func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, token, ip string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = ip + ":54321"

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func signup(t *testing.T, router *gin.Engine, email, ip string) (token, userID string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		gin.H{"email": email, "password": "password123"}, "", ip)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User.ID
}

func TestSignupAndLogin(t *testing.T) {
	router := newTestRouter(t)

	token, _ := signup(t, router, "jane@example.com", "9.0.0.1")

	// Duplicate signup conflicts.
	w := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		gin.H{"email": "jane@example.com", "password": "password123"}, "", "9.0.0.1")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/login",
		gin.H{"email": "jane@example.com", "password": "password123"}, "", "9.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/auth/login",
		gin.H{"email": "jane@example.com", "password": "wrongpass1"}, "", "9.0.0.1")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/auth/me", nil, token, "9.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Username string `json:"username"`
	}
	decode(t, w, &me)
	assert.Equal(t, "jane", me.Username)
}

func TestCreateQuestion_RequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/questions",
		gin.H{"content": "Who ate my lunch?"}, "", "9.0.0.2")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateQuestion_EmptyContent(t *testing.T) {
	router := newTestRouter(t)
	token, _ := signup(t, router, "asker@example.com", "9.0.0.3")

	w := doJSON(t, router, http.MethodPost, "/api/questions",
		gin.H{"content": ""}, token, "9.0.0.3")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRevealWorkflowOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	askerToken, _ := signup(t, router, "asker@example.com", "9.1.0.1")
	authorToken, _ := signup(t, router, "author@example.com", "9.1.0.2")
	requesterToken, _ := signup(t, router, "requester@example.com", "9.1.0.3")

	// Question and one answer.
	w := doJSON(t, router, http.MethodPost, "/api/questions",
		gin.H{"content": "Who broke the build?"}, askerToken, "9.1.0.1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var question models.Question
	decode(t, w, &question)

	w = doJSON(t, router, http.MethodPost, "/api/answers",
		gin.H{"questionId": question.ID, "content": "it was me"}, authorToken, "9.1.0.2")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var answer models.Answer
	decode(t, w, &answer)

	// Anonymous upvote; a repeat from the same IP conflicts.
	w = doJSON(t, router, http.MethodPost, "/api/upvote",
		gin.H{"answerId": answer.ID}, "", "7.7.7.7")
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/upvote",
		gin.H{"answerId": answer.ID}, "", "7.7.7.7")
	assert.Equal(t, http.StatusConflict, w.Code)

	// Reveal request on the top answer; duplicate conflicts; author is
	// forbidden from requesting their own.
	w = doJSON(t, router, http.MethodPost, "/api/answers/"+answer.ID+"/reveal-requests",
		nil, requesterToken, "9.1.0.3")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = doJSON(t, router, http.MethodPost, "/api/answers/"+answer.ID+"/reveal-requests",
		nil, requesterToken, "9.1.0.3")
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/answers/"+answer.ID+"/reveal-requests",
		nil, authorToken, "9.1.0.2")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The author sees one unread notification and can consume it.
	w = doJSON(t, router, http.MethodGet, "/api/notifications", nil, authorToken, "9.1.0.2")
	require.Equal(t, http.StatusOK, w.Code)
	var unread []struct {
		ID              string `json:"id"`
		QuestionContent string `json:"questionContent"`
	}
	decode(t, w, &unread)
	require.Len(t, unread, 1)
	assert.Equal(t, "Who broke the build?", unread[0].QuestionContent)

	w = doJSON(t, router, http.MethodPost, "/api/notifications/"+unread[0].ID+"/read",
		nil, authorToken, "9.1.0.2")
	assert.Equal(t, http.StatusOK, w.Code)

	// Only the author may reveal; the transition is one-way.
	w = doJSON(t, router, http.MethodPost, "/api/answers/"+answer.ID+"/reveal",
		nil, requesterToken, "9.1.0.3")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/answers/"+answer.ID+"/reveal",
		nil, authorToken, "9.1.0.2")
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/answers/"+answer.ID+"/reveal",
		nil, authorToken, "9.1.0.2")
	assert.Equal(t, http.StatusConflict, w.Code)

	// Revealed answers are no longer eligible for requests.
	w = doJSON(t, router, http.MethodPost, "/api/answers/"+answer.ID+"/reveal-requests",
		nil, askerToken, "9.1.0.1")
	assert.Equal(t, http.StatusConflict, w.Code)

	// The reveal lands on the leaderboard and in the question detail.
	w = doJSON(t, router, http.MethodGet, "/api/leaderboard", nil, "", "9.1.0.1")
	require.Equal(t, http.StatusOK, w.Code)
	var rows []struct {
		Username               string `json:"username"`
		AnswersRevealed        int    `json:"answers_revealed"`
		RevealRequestsReceived int    `json:"reveal_requests_received"`
	}
	decode(t, w, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "author", rows[0].Username)
	assert.Equal(t, 1, rows[0].AnswersRevealed)
	assert.Equal(t, 1, rows[0].RevealRequestsReceived)

	w = doJSON(t, router, http.MethodGet, "/api/questions/"+question.ID, nil, "", "9.1.0.1")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Answers []struct {
			AuthorName string `json:"authorName"`
			IsTop      bool   `json:"isTop"`
		} `json:"answers"`
	}
	decode(t, w, &detail)
	require.Len(t, detail.Answers, 1)
	assert.True(t, detail.Answers[0].IsTop)
	assert.Equal(t, "author", detail.Answers[0].AuthorName)
}

func TestRemoveUpvote_NoVote(t *testing.T) {
	router := newTestRouter(t)
	askerToken, _ := signup(t, router, "asker@example.com", "9.2.0.1")
	authorToken, _ := signup(t, router, "author@example.com", "9.2.0.2")

	w := doJSON(t, router, http.MethodPost, "/api/questions",
		gin.H{"content": "Q"}, askerToken, "9.2.0.1")
	require.Equal(t, http.StatusCreated, w.Code)
	var question models.Question
	decode(t, w, &question)

	w = doJSON(t, router, http.MethodPost, "/api/answers",
		gin.H{"questionId": question.ID, "content": "A"}, authorToken, "9.2.0.2")
	require.Equal(t, http.StatusCreated, w.Code)
	var answer models.Answer
	decode(t, w, &answer)

	w = doJSON(t, router, http.MethodDelete, "/api/upvote",
		gin.H{"answerId": answer.ID}, "", "6.6.6.6")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpvote_UnknownAnswer(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/upvote",
		gin.H{"answerId": "missing"}, "", "6.6.6.7")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaderboard_BadMonth(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/leaderboard?month=13-2025", nil, "", "9.3.0.1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeed_Public(t *testing.T) {
	router := newTestRouter(t)
	token, _ := signup(t, router, "asker@example.com", "9.4.0.1")

	w := doJSON(t, router, http.MethodPost, "/api/questions",
		gin.H{"content": "Anyone here?"}, token, "9.4.0.1")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/feed", nil, "", "9.4.0.2")
	require.Equal(t, http.StatusOK, w.Code)
	var items []struct {
		Question struct {
			Content string `json:"content"`
		} `json:"question"`
	}
	decode(t, w, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Anyone here?", items[0].Question.Content)
}
