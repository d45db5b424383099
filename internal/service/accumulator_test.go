package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brikr/codetango/internal/models"
)

func ts(v int64) *int64 {
	return &v
}

// blueWins builds a completed 2v2 match won by blue, ended normally (blue
// revealed all of its agents).
func blueWins(id string, completedAt int64) *models.Match {
	return &models.Match{
		ID:     id,
		Status: models.GameStatusBlueWon,
		BlueTeam: models.Team{
			UserIDs:   []string{"b1", "b2"},
			Spymaster: "b1",
		},
		RedTeam: models.Team{
			UserIDs:   []string{"r1", "r2"},
			Spymaster: "r1",
		},
		BlueAgents:  0,
		RedAgents:   3,
		CompletedAt: ts(completedAt),
	}
}

func seedUsers(elo *EloService, m *models.Match) map[string]*models.Stats {
	users := make(map[string]*models.Stats)
	for _, id := range m.Participants() {
		users[id] = elo.NewBaseStats(id, m.ID, *m.CompletedAt)
	}
	return users
}

func TestApplyMatchOutcome_WinnerAndLoserStats(t *testing.T) {
	elo := NewEloService()
	match := blueWins("m1", 1000)
	users := seedUsers(elo, match)

	applyMatchOutcome(elo, match, users)

	winner := users["b2"]
	assert.Equal(t, 1216.0, winner.Rating)
	assert.Equal(t, 1, winner.GamesPlayed)
	assert.Equal(t, 1, winner.GamesWon)
	assert.Equal(t, 1, winner.CurrentStreak)
	assert.Equal(t, 1, winner.BestStreak)
	assert.Equal(t, int64(1000), winner.Timestamp)
	assert.Zero(t, winner.SpymasterGames, "non-spymaster gains no role stats")

	loser := users["r2"]
	assert.Equal(t, 1184.0, loser.Rating)
	assert.Equal(t, 1, loser.GamesPlayed)
	assert.Zero(t, loser.GamesWon)
	assert.Zero(t, loser.CurrentStreak)
	assert.Zero(t, loser.SpymasterGames)
}

func TestApplyMatchOutcome_SpymasterStats(t *testing.T) {
	elo := NewEloService()
	match := blueWins("m1", 1000)
	users := seedUsers(elo, match)

	applyMatchOutcome(elo, match, users)

	winningSpymaster := users["b1"]
	assert.Equal(t, 1, winningSpymaster.SpymasterGames)
	assert.Equal(t, 1, winningSpymaster.SpymasterWins)
	assert.Equal(t, 1, winningSpymaster.SpymasterStreak)
	assert.Equal(t, 1, winningSpymaster.SpymasterBestStreak)

	losingSpymaster := users["r1"]
	assert.Equal(t, 1, losingSpymaster.SpymasterGames)
	assert.Zero(t, losingSpymaster.SpymasterWins)
	assert.Zero(t, losingSpymaster.SpymasterStreak)
	assert.Zero(t, losingSpymaster.AssassinsAsSpymaster, "normal loss is not an assassin click")
}

func TestApplyMatchOutcome_ZeroSum(t *testing.T) {
	elo := NewEloService()

	// 1v1 between equals outside any provisional window
	match := &models.Match{
		ID:     "m1",
		Status: models.GameStatusRedWon,
		BlueTeam: models.Team{
			UserIDs:   []string{"alice"},
			Spymaster: "alice",
		},
		RedTeam: models.Team{
			UserIDs:   []string{"bob"},
			Spymaster: "bob",
		},
		RedAgents:   0,
		BlueAgents:  2,
		CompletedAt: ts(1000),
	}

	users := map[string]*models.Stats{
		"alice": {UserID: "alice", Rating: 1350, GamesPlayed: 40},
		"bob":   {UserID: "bob", Rating: 1350, GamesPlayed: 40},
	}

	applyMatchOutcome(elo, match, users)

	gain := users["bob"].Rating - 1350
	loss := 1350 - users["alice"].Rating
	assert.Equal(t, gain, loss, "winner's gain equals loser's loss")
	assert.Equal(t, 16.0, gain)
}

func TestApplyMatchOutcome_AssassinChargedToLosingSpymaster(t *testing.T) {
	elo := NewEloService()
	match := blueWins("m1", 1000)

	// Both teams still hold unrevealed agents: red lost on the assassin
	match.BlueAgents = 4
	match.RedAgents = 3

	users := seedUsers(elo, match)
	applyMatchOutcome(elo, match, users)

	assert.Equal(t, 1, users["r1"].AssassinsAsSpymaster)
	assert.Zero(t, users["r2"].AssassinsAsSpymaster, "only the spymaster is charged")
	assert.Zero(t, users["b1"].AssassinsAsSpymaster, "winning spymaster is never charged")
}

func TestApplyMatchOutcome_StreaksAcrossMatches(t *testing.T) {
	elo := NewEloService()

	first := blueWins("m1", 1000)
	users := seedUsers(elo, first)
	applyMatchOutcome(elo, first, users)

	second := blueWins("m2", 2000)
	applyMatchOutcome(elo, second, users)

	assert.Equal(t, 2, users["b1"].CurrentStreak)
	assert.Equal(t, 2, users["b1"].BestStreak)
	assert.Equal(t, 2, users["b1"].SpymasterStreak)

	// Red wins the third match; blue streaks reset, best streak survives
	third := blueWins("m3", 3000)
	third.Status = models.GameStatusRedWon
	third.BlueAgents = 2
	third.RedAgents = 0
	applyMatchOutcome(elo, third, users)

	assert.Zero(t, users["b1"].CurrentStreak)
	assert.Equal(t, 2, users["b1"].BestStreak)
	assert.Zero(t, users["b1"].SpymasterStreak)
	assert.Equal(t, 2, users["b1"].SpymasterBestStreak)
	assert.Equal(t, 1, users["r1"].CurrentStreak)
}

func TestApplyMatchOutcome_DeltaUsesTeamAverage(t *testing.T) {
	elo := NewEloService()
	match := blueWins("m1", 1000)

	users := map[string]*models.Stats{
		"b1": {UserID: "b1", Rating: 1600, GamesPlayed: 30},
		"b2": {UserID: "b2", Rating: 1200, GamesPlayed: 30},
		"r1": {UserID: "r1", Rating: 1400, GamesPlayed: 30},
		"r2": {UserID: "r2", Rating: 1400, GamesPlayed: 30},
	}

	applyMatchOutcome(elo, match, users)

	// Team averages are both 1400, so the raw delta is K/2 for everyone
	assert.Equal(t, 1616.0, users["b1"].Rating)
	assert.Equal(t, 1216.0, users["b2"].Rating)
	assert.Equal(t, 1384.0, users["r1"].Rating)
	assert.Equal(t, 1384.0, users["r2"].Rating)
}

func TestTeamRating(t *testing.T) {
	elo := NewEloService()

	users := map[string]*models.Stats{
		"a": {UserID: "a", Rating: 1400},
		"b": {UserID: "b", Rating: 1000},
	}

	team := models.Team{UserIDs: []string{"a", "b"}}
	assert.Equal(t, 1200.0, teamRating(elo, team, users))

	solo := models.Team{UserIDs: []string{"a"}}
	assert.Equal(t, 1400.0, teamRating(elo, solo, users))

	// Unknown members fall back to the base rating
	mixed := models.Team{UserIDs: []string{"a", "stranger"}}
	require.Equal(t, 1300.0, teamRating(elo, mixed, users))
}
