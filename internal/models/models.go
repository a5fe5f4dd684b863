package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType distinguishes notification rows; reveal requests are the
// only producer today.
type NotificationType string

const (
	NotificationRevealRequest NotificationType = "reveal_request"
)

// User holds the locally-owned profile; credentials live here too since the
// identity layer is in-process.
type User struct {
	ID           string    `gorm:"primarykey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Question is immutable after creation; never edited or deleted.
type Question struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	Content   string    `gorm:"not null" json:"content"`
	UserID    string    `gorm:"not null;index" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	Answers   []Answer  `gorm:"foreignKey:QuestionID" json:"-"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// Answer belongs to exactly one Question. Votes is a denormalized counter
// kept equal to the Vote ledger inside the voting transactions.
// RevealStatus moves false->true exactly once.
type Answer struct {
	ID           string     `gorm:"primarykey;size:36" json:"id"`
	QuestionID   string     `gorm:"not null;index" json:"questionId"`
	Content      string     `gorm:"not null" json:"content"`
	UserID       string     `gorm:"index" json:"-"` // hidden until revealed
	Votes        int        `gorm:"not null;default:0" json:"votes"`
	RevealStatus bool       `gorm:"not null;default:false" json:"revealStatus"`
	RevealedAt   *time.Time `json:"revealedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (a *Answer) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Vote records one upvote per (answer, voter key). Exactly one of UserID or
// IPAddress is set; the two unique indexes keep each identity space deduped
// even under racing inserts.
type Vote struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	AnswerID  string    `gorm:"not null;index;uniqueIndex:idx_votes_answer_user;uniqueIndex:idx_votes_answer_ip" json:"answerId"`
	UserID    *string   `gorm:"uniqueIndex:idx_votes_answer_user" json:"userId,omitempty"`
	IPAddress *string   `gorm:"uniqueIndex:idx_votes_answer_ip" json:"ipAddress,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// RevealRequest exists while a requester is waiting on the author; deleting
// the row is the cancellation.
type RevealRequest struct {
	ID          string    `gorm:"primarykey;size:36" json:"id"`
	AnswerID    string    `gorm:"not null;index;uniqueIndex:idx_reveal_requests_answer_requester" json:"answerId"`
	RequestedBy string    `gorm:"not null;uniqueIndex:idx_reveal_requests_answer_requester" json:"requestedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (r *RevealRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Notification is addressed to the answer's author; read flips false->true
// exactly once.
type Notification struct {
	ID        string           `gorm:"primarykey;size:36" json:"id"`
	UserID    string           `gorm:"not null;index" json:"userId"`
	AnswerID  string           `gorm:"not null;index" json:"answerId"`
	Type      NotificationType `gorm:"size:30;not null" json:"type"`
	Read      bool             `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// All lists every model in migration order.
func All() []any {
	return []any{&User{}, &Question{}, &Answer{}, &Vote{}, &RevealRequest{}, &Notification{}}
}
