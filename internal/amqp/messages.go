package amqp

import (
	"encoding/json"
	"time"
)

// Message types carried in the AMQP Type property.
const (
	TypeSaleSync   = "sale.sync"
	TypeSaleDelete = "sale.delete"
)

// SaleSyncMessage asks the worker to mirror a stored sale to Google Sheets.
// Only identifiers travel; the worker reloads the sale from SQLite.
type SaleSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleDeleteMessage reports a deleted sale. The sale is already gone from
// SQLite, so it carries what the worker needs to refresh the year's report.
type SaleDeleteMessage struct {
	ID        int64     `json:"id"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSaleSyncMessage(id, version int64, year int) *SaleSyncMessage {
	return &SaleSyncMessage{
		ID:        id,
		Version:   version,
		Year:      year,
		Timestamp: time.Now(),
	}
}

func NewSaleDeleteMessage(id int64, year, month int, category string) *SaleDeleteMessage {
	return &SaleDeleteMessage{
		ID:        id,
		Year:      year,
		Month:     month,
		Category:  category,
		Timestamp: time.Now(),
	}
}

func (m *SaleSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (m *SaleDeleteMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SaleSyncMessageFromJSON(data []byte) (*SaleSyncMessage, error) {
	var msg SaleSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func SaleDeleteMessageFromJSON(data []byte) (*SaleDeleteMessage, error) {
	var msg SaleDeleteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
