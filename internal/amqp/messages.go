package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"saldos/internal/core"
)

// BalanceRecordedMessage announces a newly persisted balance entry. It only
// carries the composite key; consumers load the entry from the database.
type BalanceRecordedMessage struct {
	MessageID   string    `json:"message_id"`
	AccountCode string    `json:"account_code"`
	Seq         int64     `json:"seq"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewBalanceRecordedMessage(key core.BalanceKey) *BalanceRecordedMessage {
	return &BalanceRecordedMessage{
		MessageID:   uuid.NewString(),
		AccountCode: key.AccountCode,
		Seq:         key.Seq,
		Timestamp:   time.Now().UTC(),
	}
}

// Key returns the composite key of the announced entry.
func (m *BalanceRecordedMessage) Key() core.BalanceKey {
	return core.BalanceKey{AccountCode: m.AccountCode, Seq: m.Seq}
}

func (m *BalanceRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BalanceRecordedMessageFromJSON decodes a message and rejects ones without
// a usable key.
func BalanceRecordedMessageFromJSON(data []byte) (*BalanceRecordedMessage, error) {
	var msg BalanceRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.AccountCode == "" || msg.Seq <= 0 {
		return nil, fmt.Errorf("message %q has no balance key", msg.MessageID)
	}
	return &msg, nil
}
