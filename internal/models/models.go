package models

import (
	"encoding/json"
	"time"
)

// RiskLabel is the outcome of classifying a conversation window.
type RiskLabel string

const (
	LabelGrooming RiskLabel = "GROOMING"
	LabelEstafa   RiskLabel = "ESTAFA"
	LabelNoRisk   RiskLabel = "NO_RISK"
	// LabelUnknown marks a judgment reply that could not be parsed. It is
	// deliberately distinct from LabelNoRisk so the pipeline can log the
	// miss instead of conflating it with a genuine all-clear.
	LabelUnknown RiskLabel = "UNKNOWN"
)

// Risky reports whether the label should raise an alert.
func (l RiskLabel) Risky() bool {
	return l == LabelGrooming || l == LabelEstafa
}

// Message is one inbound chat message. Immutable after creation; only ever
// appended to storage.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Text           string          `json:"text"`
	ReceivedAt     time.Time       `json:"received_at"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}

// Classification is the parsed result of one judgment call.
type Classification struct {
	Label       RiskLabel `json:"label"`
	Explanation string    `json:"explanation"`
	Score       float64   `json:"score,omitempty"`
}

// Alert is the persisted record of a risky classification.
type Alert struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Label          RiskLabel `json:"label"`
	Explanation    string    `json:"explanation"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}
