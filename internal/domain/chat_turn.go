package domain

import "time"

type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "ai"
)

// ChatTurn is one message in a (user, document) transcript. Turns are
// immutable once written; ordering is by CreatedAt ascending.
type ChatTurn struct {
	Role      Role      `firestore:"role" json:"role"`
	Message   string    `firestore:"message" json:"message"`
	CreatedAt time.Time `firestore:"createdAt" json:"created_at"`
}
