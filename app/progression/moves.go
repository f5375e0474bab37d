package progression

// Move is a combat move the turtle avatar unlocks by completing challenges.
type Move struct {
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Challenges int    `json:"challenges"`
}

var moves = []Move{
	{Name: "Shell Spin", Level: 1, Challenges: 0},
	{Name: "Power Stomp", Level: 1, Challenges: 5},
	{Name: "Hydro Blast", Level: 2, Challenges: 10},
	{Name: "Lightning Strike", Level: 3, Challenges: 15},
	{Name: "Meteor Shell", Level: 4, Challenges: 25},
	{Name: "Ultimate Combo", Level: 5, Challenges: 40},
}

func UnlockedMoves(completedChallenges int) []Move {
	var out []Move
	for _, m := range moves {
		if completedChallenges >= m.Challenges {
			out = append(out, m)
		}
	}
	return out
}

// NextMove returns the first locked move, or false when everything is unlocked.
func NextMove(completedChallenges int) (Move, bool) {
	for _, m := range moves {
		if completedChallenges < m.Challenges {
			return m, true
		}
	}
	return Move{}, false
}
