package rating

import "math"

// KFactor is the swing applied to every rating update. The live recording
// path and both replay procedures share this single definition; the replayed
// history only matches the live one because the constant cannot diverge.
const KFactor = 32

// Rate returns the post-match ratings for the winner and loser of one
// head-to-head match.
//
// Expected score for the winner is 1 / (1 + 10^((loser-winner)/400)); the
// loser's is its complement. Each side moves by KFactor times the gap between
// actual and expected outcome, rounded to the nearest integer with ties away
// from zero (math.Round). The rounding rule is load-bearing: both the live
// path and the replays depend on it producing identical integers.
func Rate(winner, loser int) (newWinner, newLoser int) {
	expectedWinner := expectedScore(winner, loser)
	expectedLoser := 1 - expectedWinner

	newWinner = winner + int(math.Round(KFactor*(1-expectedWinner)))
	newLoser = loser + int(math.Round(KFactor*(0-expectedLoser)))
	return newWinner, newLoser
}

func expectedScore(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}
