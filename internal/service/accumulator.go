package service

import "github.com/brikr/codetango/internal/models"

// applyMatchOutcome folds one completed match into the working snapshots of
// every participant. Matches must be applied in completion order: streaks and
// cumulative counters depend on every earlier match already being applied.
//
// The raw delta is computed once per match from the average rating of each
// team and reused for every member, scaled by that member's own provisional
// multiplier.
func applyMatchOutcome(elo *EloService, m *models.Match, users map[string]*models.Stats) {
	winners := m.WinningTeam()
	losers := m.LosingTeam()

	change := elo.Change(teamRating(elo, winners, users), teamRating(elo, losers, users))
	completedAt := *m.CompletedAt

	for _, id := range winners.UserIDs {
		user := users[id]
		user.Rating += elo.DeltaWithProvisional(user.GamesPlayed, change)
		user.GamesPlayed++
		user.GamesWon++
		user.CurrentStreak++
		if user.CurrentStreak > user.BestStreak {
			user.BestStreak = user.CurrentStreak
		}

		user.Timestamp = completedAt
		user.Provisional = user.GamesPlayed < elo.ProvisionalGames()

		if winners.Spymaster == id {
			user.SpymasterGames++
			user.SpymasterWins++
			user.SpymasterStreak++
			if user.SpymasterStreak > user.SpymasterBestStreak {
				user.SpymasterBestStreak = user.SpymasterStreak
			}
		}
	}

	for _, id := range losers.UserIDs {
		user := users[id]
		user.Rating -= elo.DeltaWithProvisional(user.GamesPlayed, change)
		user.GamesPlayed++
		user.CurrentStreak = 0

		user.Timestamp = completedAt
		user.Provisional = user.GamesPlayed < elo.ProvisionalGames()

		if losers.Spymaster == id {
			user.SpymasterGames++
			user.SpymasterStreak = 0

			// Both teams still holding unrevealed agents means the match
			// ended on the assassin, charged to the losing spymaster.
			if m.EndedByAssassin() {
				user.AssassinsAsSpymaster++
			}
		}
	}
}

// teamRating is the arithmetic mean over the roster. A team of one is that
// user's rating. Members without a working rating count at the base rating.
func teamRating(elo *EloService, team models.Team, users map[string]*models.Stats) float64 {
	var total float64
	for _, id := range team.UserIDs {
		if user, ok := users[id]; ok && user.Rating != 0 {
			total += user.Rating
		} else {
			total += elo.BaseRating()
		}
	}
	return total / float64(len(team.UserIDs))
}
