package amqp

import (
	"encoding/json"
	"slices"
	"time"
)

// RoutingKeyDatasetReloaded routes dataset reload notifications.
const RoutingKeyDatasetReloaded = "dataset.reloaded"

// DatasetReloadedMessage announces that a new dataset snapshot is available.
// Consumers reload from their own source; the message carries only metadata.
type DatasetReloadedMessage struct {
	Origin    string    `json:"origin"`
	Source    string    `json:"source"`
	Rows      int       `json:"rows"`
	Years     []int     `json:"years,omitempty"`
	ImportID  int64     `json:"import_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDatasetReloadedMessage creates a message stamped with the current time.
func NewDatasetReloadedMessage(origin, source string, rows int, years []int) *DatasetReloadedMessage {
	return &DatasetReloadedMessage{
		Origin:    origin,
		Source:    source,
		Rows:      rows,
		Years:     slices.Clone(years),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetReloadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetReloadedMessageFromJSON decodes a message body.
func DatasetReloadedMessageFromJSON(data []byte) (*DatasetReloadedMessage, error) {
	var msg DatasetReloadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
