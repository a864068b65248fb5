package chat

import "time"

// Session is created lazily on the first completed turn in a conversation.
// Immutable once written; a conversation may accumulate many sessions over
// the life of a project.
type Session struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID      string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	ConversationID string    `gorm:"type:varchar(64);index;not null" json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Session) TableName() string { return "chat_sessions" }

// Message is one persisted turn half. Append-only; there is no update or
// delete path in this core.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	MessageID      string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"message_id"`
	SessionID      string    `gorm:"type:varchar(26);not null;index:idx_chat_msg_session_id" json:"session_id"`
	ConversationID string    `gorm:"type:varchar(64);index;not null" json:"conversation_id"`
	Role           string    `gorm:"type:varchar(16);index;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
