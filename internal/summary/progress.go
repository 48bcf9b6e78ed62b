package summary

import (
	"fmt"

	"github.com/shopspring/decimal"

	"finanquest/internal/core"
)

// DefaultXPPerLevel is the experience needed to go from one level to the
// next, as shown on the dashboard.
const DefaultXPPerLevel = 100

var hundred = decimal.NewFromInt(100)

// InvalidGoalError is returned for a goal whose target is zero or negative.
// Progress on such a goal is undefined.
type InvalidGoalError struct {
	GoalID int64
	Target core.Money
}

func (e *InvalidGoalError) Error() string {
	return fmt.Sprintf("goal %d has non-positive target %s", e.GoalID, e.Target)
}

// GoalProgress is current/target as a percentage, clamped to [0, 100]. It
// is recomputed on every call and ignores any percentage the backend sent.
func GoalProgress(g core.Goal) (float64, error) {
	if !g.TargetAmount.IsPositive() {
		return 0, &InvalidGoalError{GoalID: g.ID, Target: g.TargetAmount}
	}
	pct := g.CurrentAmount.Decimal().Mul(hundred).Div(g.TargetAmount.Decimal())
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	f, _ := pct.Round(2).Float64()
	return f, nil
}

// GoalRemaining is how much is still missing to reach the target, never
// negative.
func GoalRemaining(g core.Goal) core.Money {
	rem := g.TargetAmount.Sub(g.CurrentAmount)
	if rem.IsNegative() {
		return core.Zero
	}
	return rem
}

// Level is a display view of the user's position inside the current level.
type Level struct {
	Level       int
	XPIntoLevel int
	XPPerLevel  int
	Percent     float64
}

// LevelProgress splits the user's XP into the part earned inside the
// current level. It is for display only: levels themselves come from the
// backend and are never recomputed here.
func LevelProgress(u core.User, xpPerLevel int) Level {
	if xpPerLevel <= 0 {
		xpPerLevel = DefaultXPPerLevel
	}
	xp := u.ExperiencePoints
	if xp < 0 {
		xp = 0
	}
	into := xp % xpPerLevel
	return Level{
		Level:       u.Level,
		XPIntoLevel: into,
		XPPerLevel:  xpPerLevel,
		Percent:     float64(into) * 100 / float64(xpPerLevel),
	}
}

// AchievementProgress returns how many achievements are unlocked and the
// share as a percentage. An empty list is 0%.
func AchievementProgress(list []core.Achievement) (unlocked int, percent float64) {
	if len(list) == 0 {
		return 0, 0
	}
	for _, a := range list {
		if a.Unlocked {
			unlocked++
		}
	}
	return unlocked, float64(unlocked) * 100 / float64(len(list))
}

// ChallengesByKind splits challenges into weekly and monthly lists keeping
// their order. Challenges of any other kind are dropped.
func ChallengesByKind(list []core.Challenge) (weekly, monthly []core.Challenge) {
	for _, c := range list {
		switch c.Kind {
		case core.Weekly:
			weekly = append(weekly, c)
		case core.Monthly:
			monthly = append(monthly, c)
		}
	}
	return weekly, monthly
}

// Action is what the challenge card offers the user.
type Action string

const (
	ActionStart      Action = "start"
	ActionInProgress Action = "in_progress"
	ActionDone       Action = "done"
)

// ChallengeAction maps a challenge status to the card action.
func ChallengeAction(c core.Challenge) (action Action, enabled bool) {
	switch c.Status {
	case core.ChallengeAvailable:
		return ActionStart, true
	case core.ChallengeActive:
		return ActionInProgress, true
	default:
		return ActionDone, false
	}
}
