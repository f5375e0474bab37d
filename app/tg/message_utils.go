package tg

import (
	"fmt"
	"strconv"
	"strings"

	"toughturtle/app/events"
	"toughturtle/app/storage/models"
	"toughturtle/app/tracker"
)

const (
	defaultBotErrorMessage   = "Something went wrong on our side. Please try again later."
	welcomeMessage           = "I am the Tough Turtle bot! Open the app, press \"Link Telegram\" and send me the /start command it shows you."
	invalidLinkMessage       = "This link code is invalid or has expired. Please request a new one in the app."
	notLinkedMessage         = "This chat is not linked to a turtle yet. Send /start with the code from the app first."
	chatAlreadyLinkedMessage = "This chat is already linked to another turtle. Use a different chat for this account."
	helpMessage              = "Commands: /stats, /challenges, /leaderboard"
	progressBarWidth         = 10
)

func linkedMessage(username string) string {
	return fmt.Sprintf("Linked! I will keep %s posted about challenges and evolutions.\n%s", username, helpMessage)
}

// parseStartCommand extracts the link token from "/start <token>".
func parseStartCommand(text string) (string, bool) {
	parts := strings.Fields(text)
	if len(parts) != 2 {
		return "", false
	}
	return parts[1], true
}

// notificationText renders the events a chat wants to hear about.
func notificationText(e events.Event) (string, bool) {
	switch e.Type {
	case events.TypeChallengeCompleted:
		return fmt.Sprintf("🏁 Challenge complete: %s! +%s XP, streak %s", e.Data["name"], e.Data["xp"], e.Data["streak"]), true
	case events.TypeStageEvolved:
		return fmt.Sprintf("🐢 Your turtle evolved from %s to %s!", e.Data["from"], e.Data["to"]), true
	default:
		return "", false
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func progressBar(progress, target float64, width int) string {
	filled := 0
	if target > 0 {
		filled = int(progress / target * float64(width))
	}
	filled = max(0, min(filled, width))
	return strings.Repeat("▓", filled) + strings.Repeat("░", width-filled)
}

func formatProfile(p *tracker.Profile) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🐢 %s\n", p.User.Username)
	fmt.Fprintf(&sb, "Stage: %s\n", p.User.Stage)
	fmt.Fprintf(&sb, "XP: %d\n", p.User.Experience)
	if p.NextStage != "" {
		fmt.Fprintf(&sb, "Next stage: %s in %d XP\n", p.NextStage, p.XPToNextStage)
	}
	fmt.Fprintf(&sb, "Completed challenges: %d\n", p.CompletedChallenges)
	if len(p.Moves) > 0 {
		names := make([]string, len(p.Moves))
		for i, m := range p.Moves {
			names[i] = m.Name
		}
		fmt.Fprintf(&sb, "Moves: %s", strings.Join(names, ", "))
	} else {
		sb.WriteString("Moves: none yet")
	}
	return sb.String()
}

func formatChallenges(challenges []models.Challenge) string {
	if len(challenges) == 0 {
		return "No challenges yet."
	}
	var sb strings.Builder
	sb.WriteString("Your challenges:\n")
	for _, c := range challenges {
		mark := "▫️"
		if c.Completed {
			mark = "✅"
		}
		fmt.Fprintf(&sb, "\n%s %s: %s/%s %s\n%s", mark, c.Name, formatNumber(c.Progress), formatNumber(c.Target), c.Unit,
			progressBar(c.Progress, c.Target, progressBarWidth))
		if c.Streak > 0 {
			fmt.Fprintf(&sb, " 🔥%d", c.Streak)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatLeaderboard(entries []models.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "The leaderboard is empty."
	}
	var sb strings.Builder
	sb.WriteString("🏆 Leaderboard\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%d. %s: %d XP (%s)", e.Rank, e.Username, e.Experience, e.Stage)
	}
	return sb.String()
}
