package activity

import (
	"encoding/json"
	"time"
)

// TransactionRecorded is the lightweight event published when a transaction
// lands in a ledger. The worker fetches the full record from the store, so
// the message only carries identity.
type TransactionRecorded struct {
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecorded(transactionID, userID string) *TransactionRecorded {
	return &TransactionRecorded{
		TransactionID: transactionID,
		UserID:        userID,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionRecordedFromJSON(data []byte) (*TransactionRecorded, error) {
	var msg TransactionRecorded
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
