package actions

import (
	"fmt"

	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/internal/engine/handlers"
	"github.com/Mun1z/Imgeneus/pkg/api"
	"github.com/Mun1z/Imgeneus/pkg/logger"

	"github.com/sirupsen/logrus"
)

// HandleDamage наносит прямой урон другой сущности.
func HandleDamage(ctx handlers.Context, p api.DamagePayload) (handlers.Result, error) {
	actor := ctx.Actor

	if actor.IsDead() {
		return handlers.Result{}, domain.ErrEntityDead
	}

	target, err := resolveTarget(actor, p.TargetID)
	if err != nil {
		return handlers.Result{}, err
	}
	if target == actor.ID() {
		return handlers.Result{}, fmt.Errorf("%w: self damage", domain.ErrInvalidRequest)
	}

	amount := p.Amount
	err = ctx.Finder.Dispatch(target, func(t domain.Killable) {
		t.Stats().DecreaseHP(amount, actor)
	})
	if err != nil {
		return handlers.Result{}, err
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "damage_handler",
		"actor_id":  actor.ID(),
		"target_id": target,
		"amount":    amount,
	}).Debug("Damage dispatched")

	return handlers.Result{
		Msg:     fmt.Sprintf("%s hits for %d.", actor.Name(), amount),
		MsgType: api.ResultInfo,
	}, nil
}
