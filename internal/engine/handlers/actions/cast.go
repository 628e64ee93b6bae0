package actions

import (
	"fmt"

	"github.com/Mun1z/Imgeneus/internal/core/types"
	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/internal/engine/handlers"
	"github.com/Mun1z/Imgeneus/pkg/api"
	"github.com/Mun1z/Imgeneus/pkg/logger"

	"github.com/sirupsen/logrus"
)

// HandleCast накладывает умение на себя или на другую сущность.
// Чужая цель меняется в своём контексте, поэтому ответ лишь подтверждает отправку.
func HandleCast(ctx handlers.Context, p api.CastPayload) (handlers.Result, error) {
	actor := ctx.Actor

	if actor.IsDead() {
		return handlers.Result{}, domain.ErrEntityDead
	}

	skill, ok := ctx.Catalog.LookupSkill(p.SkillID, p.Level)
	if !ok {
		return handlers.Result{}, fmt.Errorf("%w: %d/%d", domain.ErrSkillNotFound, p.SkillID, p.Level)
	}
	if err := skill.Validate(); err != nil {
		return handlers.Result{}, err
	}

	target, err := resolveTarget(actor, p.TargetID)
	if err != nil {
		return handlers.Result{}, err
	}

	log := logger.Log.WithFields(logrus.Fields{
		"component": "cast_handler",
		"actor_id":  actor.ID(),
		"skill":     skill.String(),
		"target_id": target,
	})

	if target == actor.ID() {
		if _, err := actor.Effects().AddOrRefresh(skill, actor); err != nil {
			return handlers.Result{}, err
		}
		log.Debug("Skill cast on self")
		return handlers.Result{
			Msg:     fmt.Sprintf("%s casts %s.", actor.Name(), skill.Name),
			MsgType: api.ResultInfo,
		}, nil
	}

	if skill.Passive {
		return handlers.Result{}, fmt.Errorf("%w: passive %s on another entity", domain.ErrInvalidRequest, skill)
	}

	err = ctx.Finder.Dispatch(target, func(t domain.Killable) {
		if _, err := t.Effects().AddOrRefresh(skill, actor); err != nil {
			log.WithError(err).Info("Cast rejected by target")
		}
	})
	if err != nil {
		return handlers.Result{}, err
	}

	return handlers.Result{
		Msg:     fmt.Sprintf("%s casts %s.", actor.Name(), skill.Name),
		MsgType: api.ResultInfo,
	}, nil
}

// resolveTarget: пустая строка - сам актор.
func resolveTarget(actor *domain.Character, raw string) (types.EntityID, error) {
	if raw == "" {
		return actor.ID(), nil
	}
	id, err := types.ParseEntityID(raw)
	if err != nil || id.IsNil() {
		return types.NilEntityID, fmt.Errorf("%w: target %q", domain.ErrInvalidRequest, raw)
	}
	return id, nil
}
