// Package hook runs an external command when a session reaches its goal,
// which is how fitlock hands control back to whatever unlocks the user's apps.
package hook

import "encoding/json"

// EventGoalReached is the only event sent today.
const EventGoalReached = "goal_reached"

// Event is written as JSON to the hook's stdin.
type Event struct {
	Event      string   `json:"event"`
	SessionID  string   `json:"session_id"`
	Count      int      `json:"count"`
	Goal       int      `json:"goal"`
	UnlockApps []string `json:"unlock_apps"`
	ReachedAt  string   `json:"reached_at"`
}

// Response is read as JSON from the hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
