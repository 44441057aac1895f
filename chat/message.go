package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/DachengChen/asksql/contract"
)

// Role is who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Kind is what a message carries.
type Kind string

const (
	KindText    Kind = "text"
	KindClarify Kind = "clarify"
	KindSQL     Kind = "sql"
	KindBlocked Kind = "blocked"
)

// Message is one entry of the conversation log. Messages are never
// modified after they are appended; payload pointers must be treated as
// read-only by callers.
type Message struct {
	ID        string
	Role      Role
	Kind      Kind
	CreatedAt time.Time

	// Exactly one of the following is set, according to Kind.
	Text    string
	Clarify *contract.ClarifyResponse
	SQL     *contract.SQLResponse
	Blocked *contract.BlockedResponse
}

// Response returns the backend payload of a non-text message, or nil.
func (m Message) Response() contract.ChatResponse {
	switch m.Kind {
	case KindClarify:
		return m.Clarify
	case KindSQL:
		return m.SQL
	case KindBlocked:
		return m.Blocked
	}
	return nil
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func textMessage(role Role, text string, at time.Time) Message {
	prefix := "u"
	if role == RoleSystem {
		prefix = "s"
	}
	return Message{
		ID:        newID(prefix),
		Role:      role,
		Kind:      KindText,
		CreatedAt: at,
		Text:      text,
	}
}

// assistantMessage classifies a backend response into a message.
func assistantMessage(resp contract.ChatResponse, at time.Time) (Message, error) {
	base := Message{
		ID:        newID("a"),
		Role:      RoleAssistant,
		CreatedAt: at,
	}
	return contract.Match(resp,
		func(r *contract.ClarifyResponse) Message {
			base.Kind, base.Clarify = KindClarify, r
			return base
		},
		func(r *contract.SQLResponse) Message {
			base.Kind, base.SQL = KindSQL, r
			return base
		},
		func(r *contract.BlockedResponse) Message {
			base.Kind, base.Blocked = KindBlocked, r
			return base
		},
	)
}
