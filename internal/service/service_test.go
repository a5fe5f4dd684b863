package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/harsh99/anonqa/internal/models"
)

// newTestService opens an isolated in-memory database. Connections are
// capped at one so every query sees the same SQLite instance.
func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))
	return New(db)
}

func createUser(t *testing.T, s *Service, name string) *models.User {
	t.Helper()
	user, err := s.Register(fmt.Sprintf("%s@example.com", name), "password123", name)
	require.NoError(t, err)
	return user
}

func askQuestion(t *testing.T, s *Service, userID, content string) *models.Question {
	t.Helper()
	q, err := s.CreateQuestion(userID, content)
	require.NoError(t, err)
	return q
}

func postAnswer(t *testing.T, s *Service, questionID, userID, content string) *models.Answer {
	t.Helper()
	a, err := s.CreateAnswer(questionID, userID, content)
	require.NoError(t, err)
	return a
}

var nextVoterIP atomic.Int64

// castVotes casts n votes on the answer, each from a fresh anonymous IP.
func castVotes(t *testing.T, s *Service, answerID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		k := nextVoterIP.Add(1)
		_, err := s.CastVote(answerID, VoterKey{IP: fmt.Sprintf("10.%d.%d.%d", k/65536, (k/256)%256, k%256)})
		require.NoError(t, err)
	}
}

func voteCount(t *testing.T, s *Service, answerID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&models.Vote{}).Where("answer_id = ?", answerID).Count(&n).Error)
	return n
}

func answerByID(t *testing.T, s *Service, answerID string) *models.Answer {
	t.Helper()
	var a models.Answer
	require.NoError(t, s.db.First(&a, "id = ?", answerID).Error)
	return &a
}
