// Package progression holds the pure rules that turn logged actions into experience and
// experience into evolution stages.
package progression

type Stage string

const (
	StageHatchling Stage = "Batchling Hatchling"
	StageSnapper   Stage = "Spry Snapper"
	StageSeeker    Stage = "Shelless Seeker"
	StageShadow    Stage = "Shadow Shell"
	StageTitan     Stage = "Tough Turtle Titan"
)

type threshold struct {
	minXP int
	stage Stage
}

// ascending, inclusive lower bounds
var thresholds = []threshold{
	{minXP: 0, stage: StageHatchling},
	{minXP: 50, stage: StageSnapper},
	{minXP: 150, stage: StageSeeker},
	{minXP: 300, stage: StageShadow},
	{minXP: 500, stage: StageTitan},
}

// StageFor maps accumulated experience to a stage. Negative values are treated as zero.
func StageFor(xp int) Stage {
	stage := StageHatchling
	for _, t := range thresholds {
		if xp >= t.minXP {
			stage = t.stage
		}
	}
	return stage
}

// StageRank orders stages from 0 (hatchling) upwards; unknown names rank -1.
func StageRank(s Stage) int {
	for i, t := range thresholds {
		if t.stage == s {
			return i
		}
	}
	return -1
}

// NextStage returns the stage after the one xp currently maps to and how much experience is
// still missing. ok is false once the final stage is reached.
func NextStage(xp int) (next Stage, missing int, ok bool) {
	rank := StageRank(StageFor(xp))
	if rank+1 >= len(thresholds) {
		return "", 0, false
	}
	t := thresholds[rank+1]
	if xp < 0 {
		xp = 0
	}
	return t.stage, t.minXP - xp, true
}

type ActionKind string

const (
	ActionExercise     ActionKind = "exercise"
	ActionSleep        ActionKind = "sleep"
	ActionBiohacking   ActionKind = "biohacking"
	ActionRestfulNight ActionKind = "wellness"
)

var actionXP = map[ActionKind]int{
	ActionExercise:     25,
	ActionSleep:        20,
	ActionBiohacking:   20,
	ActionRestfulNight: 5,
}

// XPFor is the fixed reward for logging an action; unknown kinds earn nothing.
func XPFor(kind ActionKind) int {
	return actionXP[kind]
}

const defaultChallengeXP = 20

var challengeXP = map[string]int{
	"cardio":     25,
	"strength":   30,
	"sleep":      20,
	"hydration":  15,
	"meditation": 25,
}

// ChallengeXP is the reward for completing a challenge of the given category.
func ChallengeXP(category string) int {
	if xp, ok := challengeXP[category]; ok {
		return xp
	}
	return defaultChallengeXP
}
