package amqp

import (
	"encoding/json"
	"time"
)

// LiabilitySyncMessage asks the worker to refresh one linked bank item.
// It carries only identifiers; the worker loads the access token and pulls
// fresh data from the aggregator itself.
type LiabilitySyncMessage struct {
	UserID    int64     `json:"user_id"`
	ItemID    int64     `json:"item_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLiabilitySyncMessage(userID, itemID int64) *LiabilitySyncMessage {
	return &LiabilitySyncMessage{
		UserID:    userID,
		ItemID:    itemID,
		Timestamp: time.Now(),
	}
}

func (m *LiabilitySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LiabilitySyncMessageFromJSON(data []byte) (*LiabilitySyncMessage, error) {
	var msg LiabilitySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
