package summary

import (
	"errors"
	"testing"

	"finanquest/internal/core"
)

func TestGoalProgress(t *testing.T) {
	tests := []struct {
		name          string
		current, goal string
		want          float64
	}{
		{"half", "50", "100", 50},
		{"overfunded clamps", "150", "100", 100},
		{"exact", "100", "100", 100},
		{"fraction", "1", "3", 33.33},
		{"empty", "0", "100", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := core.Goal{ID: 1, Name: "Trip", CurrentAmount: moneyOrZero(tt.current), TargetAmount: money(tt.goal)}
			got, err := GoalProgress(g)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("GoalProgress = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGoalProgressInvalidTarget(t *testing.T) {
	for _, target := range []core.Money{core.Zero, money("5").Neg()} {
		g := core.Goal{ID: 4, Name: "Broken", CurrentAmount: money("10"), TargetAmount: target}
		_, err := GoalProgress(g)
		var ige *InvalidGoalError
		if !errors.As(err, &ige) {
			t.Fatalf("target %s: expected InvalidGoalError, got %v", target, err)
		}
		if ige.GoalID != 4 {
			t.Fatalf("error goal id = %d", ige.GoalID)
		}
	}
}

func TestGoalRemaining(t *testing.T) {
	g := core.Goal{CurrentAmount: money("30"), TargetAmount: money("100")}
	if got := GoalRemaining(g); !got.Equal(money("70")) {
		t.Fatalf("remaining = %s", got)
	}
	g.CurrentAmount = money("130")
	if got := GoalRemaining(g); !got.IsZero() {
		t.Fatalf("overfunded remaining = %s", got)
	}
}

func TestLevelProgress(t *testing.T) {
	got := LevelProgress(core.User{Level: 3, ExperiencePoints: 270}, DefaultXPPerLevel)
	if got.Level != 3 || got.XPIntoLevel != 70 || got.Percent != 70 {
		t.Fatalf("LevelProgress = %+v", got)
	}
	got = LevelProgress(core.User{Level: 1, ExperiencePoints: 25}, 0)
	if got.XPPerLevel != DefaultXPPerLevel || got.XPIntoLevel != 25 {
		t.Fatalf("default xp per level not applied: %+v", got)
	}
}

func TestAchievementProgress(t *testing.T) {
	list := []core.Achievement{{ID: "1", Unlocked: true}, {ID: "2"}, {ID: "3", Unlocked: true}, {ID: "4"}}
	n, pct := AchievementProgress(list)
	if n != 2 || pct != 50 {
		t.Fatalf("AchievementProgress = %d, %v", n, pct)
	}
	if n, pct := AchievementProgress(nil); n != 0 || pct != 0 {
		t.Fatalf("empty AchievementProgress = %d, %v", n, pct)
	}
}

func TestChallengesByKindAndAction(t *testing.T) {
	list := []core.Challenge{
		{ID: "1", Kind: core.Weekly, Status: core.ChallengeAvailable},
		{ID: "2", Kind: core.Monthly, Status: core.ChallengeActive},
		{ID: "3", Kind: core.Weekly, Status: core.ChallengeCompleted},
		{ID: "4", Kind: "DAILY"},
	}
	weekly, monthly := ChallengesByKind(list)
	if len(weekly) != 2 || weekly[0].ID != "1" || weekly[1].ID != "3" {
		t.Fatalf("weekly = %+v", weekly)
	}
	if len(monthly) != 1 || monthly[0].ID != "2" {
		t.Fatalf("monthly = %+v", monthly)
	}

	tests := []struct {
		status  core.ChallengeStatus
		action  Action
		enabled bool
	}{
		{core.ChallengeAvailable, ActionStart, true},
		{core.ChallengeActive, ActionInProgress, true},
		{core.ChallengeCompleted, ActionDone, false},
	}
	for _, tt := range tests {
		a, ok := ChallengeAction(core.Challenge{Status: tt.status})
		if a != tt.action || ok != tt.enabled {
			t.Errorf("ChallengeAction(%s) = %s, %v", tt.status, a, ok)
		}
	}
}

func moneyOrZero(s string) core.Money {
	if s == "0" {
		return core.Zero
	}
	return money(s)
}
