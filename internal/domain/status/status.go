// Package status defines the result of an open/closed evaluation.
package status

// Kind classifies the overall state reported to callers.
type Kind string

// Status kinds.
const (
	KindOpen            Kind = "open"
	KindClosed          Kind = "closed"
	KindEmergencyClosed Kind = "emergency_closed"
)

// Rule identifies which precedence level produced the result:
// emergency override, calendar exception, or recurring weekly hours.
type Rule string

// Applied rules, in precedence order.
const (
	RuleEmergency   Rule = "emergency"
	RuleSpecialDate Rule = "special_date"
	RuleWeeklyHours Rule = "weekly_hours"
)

// NextOpen is a structured "next opening" value; Day is "today" or
// "tomorrow" and Time is the "HH:MM" local opening time. Formatting for
// display is the caller's concern.
type NextOpen struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

// Result is the outcome of one status evaluation.
type Result struct {
	IsOpen           bool      `json:"is_open"`
	Kind             Kind      `json:"status_kind"`
	CurrentLocalTime string    `json:"current_local_time"`
	Reason           string    `json:"reason,omitempty"`
	NextOpen         *NextOpen `json:"next_open_time,omitempty"`
	NextClose        string    `json:"next_close_time,omitempty"`
	AppliedRule      Rule      `json:"applied_rule"`
}
