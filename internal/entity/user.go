package entity

import (
	"regexp"
	"time"

	"github.com/rocketscienceinc/xoxo-backend/internal/apperror"
)

const (
	RankNewbie   = "Newbie"
	RankRookie   = "Rookie"
	RankPro      = "Pro"
	RankChampion = "Champion"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// UserProfile - identity-keyed player record. Created once per identity on
// first username registration, never deleted.
type UserProfile struct {
	UID         string    `json:"uid"`
	Username    string    `json:"username"`
	XP          int       `json:"xp"`
	Rank        string    `json:"rank"`
	GamesPlayed int       `json:"gamesPlayed"`
	GamesWon    int       `json:"gamesWon"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewUserProfile(uid, username string, createdAt time.Time) *UserProfile {
	return &UserProfile{
		UID:       uid,
		Username:  username,
		Rank:      RankForXP(0),
		CreatedAt: createdAt,
	}
}

// RankForXP - the rank is a pure step function of XP.
func RankForXP(xp int) string {
	switch {
	case xp >= 1000:
		return RankChampion
	case xp >= 500:
		return RankPro
	case xp >= 200:
		return RankRookie
	default:
		return RankNewbie
	}
}

// ValidateUsername - 3-20 characters, letters, digits and underscores.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return apperror.ErrUsernameInvalid
	}
	return nil
}

// Outcome - a match result relative to one player.
type Outcome string

const (
	OutcomeWin          Outcome = "win"
	OutcomeLoss         Outcome = "loss"
	OutcomeDraw         Outcome = "draw"
	OutcomeForfeit      Outcome = "forfeit"
	OutcomeOpponentLeft Outcome = "opponent_left"
)

// XPDelta - win +10, loss -5, draw +2, leaving a live game -10; the player
// whose opponent left gets nothing and loses nothing.
func (that Outcome) XPDelta() int {
	switch that {
	case OutcomeWin:
		return 10
	case OutcomeLoss:
		return -5
	case OutcomeDraw:
		return 2
	case OutcomeForfeit:
		return -10
	default:
		return 0
	}
}

// ApplyOutcome - applies the outcome's XP delta with a floor of zero and
// recomputes the rank from the new XP. Counters move only on outcomes that
// carry a delta; GamesWon moves only on actual wins.
func (that *UserProfile) ApplyOutcome(outcome Outcome) {
	delta := outcome.XPDelta()

	that.XP += delta
	if that.XP < 0 {
		that.XP = 0
	}
	that.Rank = RankForXP(that.XP)

	if delta != 0 {
		that.GamesPlayed++
	}
	if outcome == OutcomeWin {
		that.GamesWon++
	}
}
