package notify

// Severity levels, ordered INFO < WARNING < ERROR. SUCCESS carries the
// same floor as INFO.
const (
	SeverityInfo    = "INFO"
	SeveritySuccess = "SUCCESS"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// Event types channels subscribe to
const (
	EventOrderChecked = "order.checked"
	EventProfitAlert  = "profit.alert"
	EventSystemError  = "system.error"
	EventTest         = "test"
)

var severityRank = map[string]int{
	SeverityInfo:    0,
	SeveritySuccess: 0,
	SeverityWarning: 1,
	SeverityError:   2,
}

// Event is one notification payload before channel-specific rendering
type Event struct {
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Severity    string                 `json:"severity"`
	Marketplace string                 `json:"marketplace,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SendResult is the outcome of one channel delivery attempt
type SendResult struct {
	ChannelID int64  `json:"channel_id"`
	Kind      string `json:"kind"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// meetsSeverityFloor applies the channel's minimum severity. ERROR
// events always pass, regardless of the configured floor.
func meetsSeverityFloor(eventSeverity, minSeverity string) bool {
	if eventSeverity == SeverityError {
		return true
	}
	return severityRank[eventSeverity] >= severityRank[minSeverity]
}
