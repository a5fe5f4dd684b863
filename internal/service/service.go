package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Expected, recoverable outcomes. Handlers map these onto HTTP statuses;
// anything else is a store failure and turns into a generic 500.
var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrAlreadyVoted       = errors.New("already voted")
	ErrNoSuchVote         = errors.New("no such vote")
	ErrAlreadyRequested   = errors.New("reveal already requested")
	ErrNoSuchRequest      = errors.New("no such reveal request")
	ErrAlreadyRevealed    = errors.New("answer already revealed")
	ErrNotEligible        = errors.New("answer is not eligible for reveal requests")
	ErrOwnAnswer          = errors.New("cannot request a reveal on your own answer")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Service implements the question/answer/reveal workflow on top of the
// relational store. Every mutation runs as one transaction so the ledger
// inserts and their counter updates land together.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// isDuplicate recognizes unique-constraint violations from both drivers. A
// racing duplicate insert fails here rather than corrupting the counters.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
