// Package reward computes the experience, coin, and focus-quality outcome
// for a finished or abandoned session. It performs no I/O: awarding the
// resulting numbers into the persistent economy is the caller's job.
package reward

import (
	"math"

	"github.com/kronholm/flowtime/internal/models"
)

// Quality classifies a completed work session by how often the user tried to
// leave the blocked-app environment during it.
type Quality string

const (
	QualityPerfect    Quality = "perfect"
	QualityGood       Quality = "good"
	QualityDistracted Quality = "distracted"
	// QualityUndefined means distraction tracking was never configured for
	// the session. It applies neither bonus nor penalty and must not be
	// conflated with QualityDistracted.
	QualityUndefined Quality = "undefined"
)

// MinRewardMinutes is the number of completed work minutes below which a
// session earns no experience.
const MinRewardMinutes = 25

const (
	perfectMultiplier = 1.25
	goodMultiplier    = 1.10

	perfectCoinBonus = 50
	goodCoinBonus    = 25

	maxGoodAttempts = 2
)

// Params describes a finished session.
type Params struct {
	Kind             models.SessionKind
	CompletedMinutes int
	// BaseXP is the unmodified experience for the completed minutes, as
	// reported by the external ledger.
	BaseXP              int
	DistractionAttempts int
	TrackingConfigured  bool
}

// Result is the computed award. It is ephemeral and never persisted.
type Result struct {
	XPEarned    int
	CoinsEarned int
	Quality     Quality
	BonusLabel  string
}

// Eligible reports whether a session of the given kind and length earns
// experience at all. Break sessions never do.
func Eligible(kind models.SessionKind, completedMinutes int) bool {
	return kind == models.Work && completedMinutes >= MinRewardMinutes
}

// classify maps a distraction-attempt count to a focus quality tier.
func classify(attempts int) Quality {
	switch {
	case attempts == 0:
		return QualityPerfect
	case attempts <= maxGoodAttempts:
		return QualityGood
	default:
		return QualityDistracted
	}
}

// Evaluate computes the reward for a session. The XP multiplier and flat
// coin bonus depend on the focus quality tier; both apply only when
// distraction tracking was configured and the session is reward-eligible.
func Evaluate(p Params) Result {
	res := Result{
		Quality: QualityUndefined,
	}

	if p.TrackingConfigured {
		res.Quality = classify(p.DistractionAttempts)
	}

	if !Eligible(p.Kind, p.CompletedMinutes) {
		return res
	}

	multiplier := 1.0

	switch res.Quality {
	case QualityPerfect:
		multiplier = perfectMultiplier
		res.CoinsEarned = perfectCoinBonus
		res.BonusLabel = "Perfect focus"
	case QualityGood:
		multiplier = goodMultiplier
		res.CoinsEarned = goodCoinBonus
		res.BonusLabel = "Good focus"
	}

	res.XPEarned = int(math.Floor(float64(p.BaseXP) * multiplier))

	return res
}
