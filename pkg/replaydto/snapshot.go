package replaydto

import "time"

// Snapshot is the board after one accepted ply.
type Snapshot struct {
	ReplayID   string    `json:"replay_id"`
	Ply        int       `json:"ply"`
	MoveNumber int       `json:"move_number"`
	Side       string    `json:"side"`
	Token      string    `json:"token"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Rows       []string  `json:"rows"`
	WhiteKing  string    `json:"white_king"`
	BlackKing  string    `json:"black_king"`
	Image      []byte    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Text renders the rows as the eight-line board block.
func (s Snapshot) Text() string {
	out := make([]byte, 0, len(s.Rows)*16)
	for _, row := range s.Rows {
		out = append(out, row...)
		out = append(out, '\n')
	}
	return string(out)
}
