package domain

import (
	"time"
)

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
)

// Session holds one customer's conversation: the ordered turn log and at
// most one order in progress. Created on the first utterance, closed
// explicitly or archived after an idle timeout.
type Session struct {
	ID          string        `json:"id" gorm:"primaryKey"`
	Status      SessionStatus `json:"status" gorm:"index"`
	OrderID     string        `json:"order_id,omitempty"`
	Turns       []Turn        `json:"turns,omitempty" gorm:"foreignKey:SessionID"`
	LastTurnSeq int           `json:"last_turn_seq"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"index"`
}

// Turn is one request/response exchange, versioned by Seq within its session.
type Turn struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	SessionID  string    `json:"session_id" gorm:"index"`
	Seq        int       `json:"seq"`
	UserText   string    `json:"user_text"`
	SystemText string    `json:"system_text"`
	Intent     string    `json:"intent,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecentTurns returns the most recent n turns in chronological order, used
// to bound the context window handed to the language model.
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}
