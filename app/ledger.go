package app

import (
	"context"

	"github.com/kronholm/flowtime/internal/models"
	"github.com/kronholm/flowtime/store"
)

// baseXPPerMinute is the unmodified experience rate for completed work
// minutes.
const baseXPPerMinute = 10

// boltLedger persists the reward economy in the data store.
type boltLedger struct {
	db store.DB
}

func (l *boltLedger) AwardBaseXP(
	_ context.Context,
	completedMinutes int,
) (int, error) {
	xp := completedMinutes * baseXPPerMinute

	_, err := l.db.UpdateLedger(func(led *models.Ledger) {
		led.XP += xp
	})
	if err != nil {
		return 0, err
	}

	return xp, nil
}

func (l *boltLedger) AddBonusXP(_ context.Context, amount int) error {
	_, err := l.db.UpdateLedger(func(led *models.Ledger) {
		led.XP += amount
	})

	return err
}

func (l *boltLedger) AddBonusCoins(_ context.Context, amount int) error {
	_, err := l.db.UpdateLedger(func(led *models.Ledger) {
		led.Coins += amount
	})

	return err
}
