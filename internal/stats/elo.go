// Package stats maintains per-player ratings and counters from terminal
// game events. It runs entirely off the event log; losing every row here
// and replaying the log rebuilds identical numbers.
package stats

import "math"

const (
	// InitialRating seeds new players.
	InitialRating = 1200

	// Provisional players move faster.
	provisionalGames = 30
	kProvisional     = 32
	kEstablished     = 16
)

// expectedScore is the standard Elo win expectation for a player rated
// `rating` against `opponent`.
func expectedScore(rating, opponent int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponent-rating)/400.0))
}

// kFactor picks the K by experience.
func kFactor(gamesPlayed int) float64 {
	if gamesPlayed < provisionalGames {
		return kProvisional
	}
	return kEstablished
}

// ratingDelta returns the signed rating change for a player with the
// given record scoring `score` (1 win, 0.5 draw, 0 loss) against an
// opponent.
func ratingDelta(rating, gamesPlayed, opponentRating int, score float64) int {
	raw := kFactor(gamesPlayed) * (score - expectedScore(rating, opponentRating))
	return int(math.Round(raw))
}

// applyDelta moves a rating, clamped at zero.
func applyDelta(rating, delta int) int {
	next := rating + delta
	if next < 0 {
		return 0
	}
	return next
}
