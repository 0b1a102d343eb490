// Package dataset turns the customer interaction log into a cleaned,
// immutable set of records.
package dataset

import "time"

// Column names of the interaction log. Matching is exact.
const (
	ColTimestamp       = "Event Timestamp"
	ColResponseTime    = "Response Time (s)"
	ColSentiment       = "Sentiment Score"
	ColIndustry        = "Industry"
	ColCustomerSegment = "Customer Segment"
	ColDepartment      = "Department"
	ColUserName        = "User Name"
	ColRecordID        = "Record ID"
	ColActionTaken     = "Action Taken"
	ColNotes           = "Interaction Notes"
)

// RequiredColumns lists every column the log must carry.
var RequiredColumns = []string{
	ColTimestamp,
	ColResponseTime,
	ColSentiment,
	ColIndustry,
	ColCustomerSegment,
	ColDepartment,
	ColUserName,
	ColRecordID,
	ColActionTaken,
	ColNotes,
}

// UnknownCategory fills missing industry and customer segment cells.
const UnknownCategory = "Unknown"

// InteractionRecord is one surviving row of the interaction log.
type InteractionRecord struct {
	RecordID            string    `json:"record_id"`
	Timestamp           time.Time `json:"timestamp"`
	ResponseTimeSeconds float64   `json:"response_time_seconds"`
	SentimentScore      float64   `json:"sentiment_score"`
	Industry            string    `json:"industry"`
	CustomerSegment     string    `json:"customer_segment"`
	Department          string    `json:"department"`
	UserName            string    `json:"user_name"`
	ActionTaken         string    `json:"action_taken"`
	InteractionNotes    string    `json:"interaction_notes"`
}
