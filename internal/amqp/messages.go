package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage announces that an obligation's ledger changed. It
// carries only identifiers; consumers reload the obligation from storage.
type LedgerChangedMessage struct {
	ObligationID string    `json:"obligation_id"`
	Operation    string    `json:"operation"`
	EntryIDs     []string  `json:"entry_ids,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(obligationID, operation string, entryIDs []string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		ObligationID: obligationID,
		Operation:    operation,
		EntryIDs:     entryIDs,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
