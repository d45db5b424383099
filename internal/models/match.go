package models

import "time"

type GameStatus string

const (
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusBlueWon    GameStatus = "blue_won"
	GameStatusRedWon     GameStatus = "red_won"
)

type Team struct {
	UserIDs   []string `json:"userIds"`
	Spymaster string   `json:"spymaster"`
}

type Match struct {
	ID       string     `json:"id" db:"id"`
	RoomID   string     `json:"roomId" db:"room_id"`
	Status   GameStatus `json:"status" db:"status"`
	BlueTeam Team       `json:"blueTeam"`
	RedTeam  Team       `json:"redTeam"`

	// Unrevealed agent tiles per team at the end of the match. When a match
	// ends with both counts above zero, the losing team clicked the assassin.
	BlueAgents int `json:"blueAgents" db:"blue_agents"`
	RedAgents  int `json:"redAgents" db:"red_agents"`

	// Flattened roster, kept in sync by the recalc engine for roster queries.
	UserIDs []string `json:"userIds,omitempty" db:"user_ids"`

	// Epoch milliseconds. Set exactly once, when the match reaches a terminal
	// status, and never changes afterwards.
	CompletedAt *int64 `json:"completedAt,omitempty" db:"completed_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Completed reports whether the match reached a terminal status.
func (m *Match) Completed() bool {
	return m.CompletedAt != nil && m.Status != GameStatusInProgress
}

// Participants returns the full roster, blue team first.
func (m *Match) Participants() []string {
	ids := make([]string, 0, len(m.BlueTeam.UserIDs)+len(m.RedTeam.UserIDs))
	ids = append(ids, m.BlueTeam.UserIDs...)
	ids = append(ids, m.RedTeam.UserIDs...)
	return ids
}

func (m *Match) WinningTeam() Team {
	if m.Status == GameStatusBlueWon {
		return m.BlueTeam
	}
	return m.RedTeam
}

func (m *Match) LosingTeam() Team {
	if m.Status == GameStatusBlueWon {
		return m.RedTeam
	}
	return m.BlueTeam
}

// EndedByAssassin reports whether the match ended with a penalty click rather
// than either team revealing all of its agent tiles.
func (m *Match) EndedByAssassin() bool {
	return m.BlueAgents > 0 && m.RedAgents > 0
}
