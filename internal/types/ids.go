// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type MessageID string

func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}
