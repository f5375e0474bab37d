package tg

import (
	"strings"
	"testing"

	"toughturtle/app/events"
	"toughturtle/app/progression"
	"toughturtle/app/storage/models"
	"toughturtle/app/tracker"
)

func TestParseStartCommand(t *testing.T) {
	tests := []struct {
		input     string
		wantToken string
		wantOk    bool
	}{
		{"/start abc.def.ghi", "abc.def.ghi", true},
		{"/start   abc.def.ghi  ", "abc.def.ghi", true},
		{"/start", "", false},
		{"/start a b", "", false},
	}
	for _, tt := range tests {
		token, ok := parseStartCommand(tt.input)
		if token != tt.wantToken || ok != tt.wantOk {
			t.Errorf("parseStartCommand(%q) = %q, %v; want %q, %v", tt.input, token, ok, tt.wantToken, tt.wantOk)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		progress, target float64
		want             string
	}{
		{0, 5, "░░░░░░░░░░"},
		{2.5, 5, "▓▓▓▓▓░░░░░"},
		{5, 5, "▓▓▓▓▓▓▓▓▓▓"},
		{7, 5, "▓▓▓▓▓▓▓▓▓▓"},
		{1, 0, "░░░░░░░░░░"},
	}
	for _, tt := range tests {
		if got := progressBar(tt.progress, tt.target, progressBarWidth); got != tt.want {
			t.Errorf("progressBar(%v, %v) = %q, want %q", tt.progress, tt.target, got, tt.want)
		}
	}
}

func TestNotificationText(t *testing.T) {
	text, ok := notificationText(events.Event{
		Type: events.TypeChallengeCompleted,
		Data: map[string]string{"name": "Shell Press", "xp": "25", "streak": "2"},
	})
	if !ok {
		t.Fatal("expected challenge completion to be announced")
	}
	if want := "🏁 Challenge complete: Shell Press! +25 XP, streak 2"; text != want {
		t.Errorf("got %q, want %q", text, want)
	}

	text, ok = notificationText(events.Event{
		Type: events.TypeStageEvolved,
		Data: map[string]string{"from": "Batchling Hatchling", "to": "Spry Snapper"},
	})
	if !ok || !strings.Contains(text, "from Batchling Hatchling to Spry Snapper") {
		t.Errorf("unexpected evolution text %q", text)
	}

	if _, ok := notificationText(events.Event{Type: events.TypeActivityLogged}); ok {
		t.Error("activity events should stay quiet")
	}
}

func TestFormatChallenges(t *testing.T) {
	msg := formatChallenges([]models.Challenge{
		{Name: "Sprint to Spry Snapper", Progress: 2.5, Target: 5, Unit: "km"},
		{Name: "Shell Press", Progress: 3, Target: 3, Unit: "sets", Completed: true, Streak: 4},
	})
	want := "Your challenges:\n" +
		"\n▫️ Sprint to Spry Snapper: 2.5/5 km\n▓▓▓▓▓░░░░░\n" +
		"\n✅ Shell Press: 3/3 sets\n▓▓▓▓▓▓▓▓▓▓ 🔥4"
	if msg != want {
		t.Errorf("unexpected message output.\nGot:\n%s\nWant:\n%s", msg, want)
	}
	if got := formatChallenges(nil); got != "No challenges yet." {
		t.Errorf("unexpected empty output %q", got)
	}
}

func TestFormatLeaderboard(t *testing.T) {
	msg := formatLeaderboard([]models.LeaderboardEntry{
		{Rank: 1, Username: "shelly", Experience: 120, Stage: "Shelless Seeker"},
		{Rank: 2, Username: "crush", Experience: 65, Stage: "Spry Snapper"},
	})
	want := "🏆 Leaderboard\n\n1. shelly: 120 XP (Shelless Seeker)\n2. crush: 65 XP (Spry Snapper)"
	if msg != want {
		t.Errorf("unexpected message output.\nGot:\n%s\nWant:\n%s", msg, want)
	}
}

func TestFormatProfile(t *testing.T) {
	msg := formatProfile(&tracker.Profile{
		User:                &models.User{Username: "shelly", Stage: "Spry Snapper", Experience: 65},
		NextStage:           "Shelless Seeker",
		XPToNextStage:       35,
		CompletedChallenges: 1,
		Moves:               []progression.Move{{Name: "Shell Bash", Level: 1, Challenges: 1}},
	})
	for _, want := range []string{"🐢 shelly", "Stage: Spry Snapper", "XP: 65", "Next stage: Shelless Seeker in 35 XP", "Moves: Shell Bash"} {
		if !strings.Contains(msg, want) {
			t.Errorf("profile %q is missing %q", msg, want)
		}
	}

	msg = formatProfile(&tracker.Profile{User: &models.User{Username: "titan", Stage: "Tough Turtle Titan"}})
	if strings.Contains(msg, "Next stage") || !strings.Contains(msg, "Moves: none yet") {
		t.Errorf("unexpected max stage profile %q", msg)
	}
}
