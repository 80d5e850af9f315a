package replaydto

import "time"

// PlyError records a ply that was rejected under the skip policy.
type PlyError struct {
	Ply        int    `json:"ply"`
	MoveNumber int    `json:"move_number"`
	Side       string `json:"side"`
	Token      string `json:"token"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Summary describes a finished (or aborted) replay.
type Summary struct {
	ReplayID  string     `json:"replay_id"`
	Plies     int        `json:"plies"`
	Tokens    []string   `json:"tokens"`
	Errors    []PlyError `json:"errors,omitempty"`
	Rows      []string   `json:"rows"`
	WhiteKing string     `json:"white_king"`
	BlackKing string     `json:"black_king"`
	Result    string     `json:"result,omitempty"`
	ECO       string     `json:"eco,omitempty"`
	Opening   string     `json:"opening,omitempty"`
	Aborted   bool       `json:"aborted,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
}

// Accepted reports how many plies were applied.
func (s *Summary) Accepted() int {
	if s == nil {
		return 0
	}
	return len(s.Tokens)
}
