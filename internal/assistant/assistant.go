package assistant

import (
	"time"

	"github.com/thanaphumeng-byte/Dose-DISH-APP/internal/analysis"
)

// UserProfile is the user's identity and medical context. It is the
// only durable record; scan history hangs off it in insertion order.
type UserProfile struct {
	Name        string        `json:"name"`
	Age         int           `json:"age"`
	Conditions  string        `json:"conditions"`
	Medications string        `json:"medications"`
	Allergies   string        `json:"allergies"`
	History     []HistoryItem `json:"history"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// HistoryItem is one recorded scan outcome. Immutable once created.
type HistoryItem struct {
	ID        string            `json:"id"`
	Type      analysis.ScanMode `json:"type"`
	Name      string            `json:"name"`
	Value     string            `json:"value,omitempty"` // lab results only
	Date      string            `json:"date"`            // calendar date, YYYY-MM-DD
	Timestamp time.Time         `json:"timestamp"`
}

// AnalysisResult is the outcome of one scan, interaction check, or
// chat-free analysis. Ephemeral; returned to the caller, never stored.
type AnalysisResult struct {
	Text      string              `json:"text"` // markdown reply from the model
	RiskLevel analysis.RiskLevel  `json:"risk_level"`
	Timestamp time.Time           `json:"timestamp"`
	Mode      analysis.ScanMode   `json:"mode"`
	Extracted *analysis.Extracted `json:"extracted_data,omitempty"`
}

// ChatMessage is one turn of the pharmacist conversation. Session
// scoped; the session does not survive a process restart.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user or model
	Text      string    `json:"text"`
	Image     []byte    `json:"image,omitempty"` // serializes as base64
	Timestamp time.Time `json:"timestamp"`
}

// LabPoint is one charted lab measurement derived from history
type LabPoint struct {
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
	Metric string  `json:"metric"`
}
