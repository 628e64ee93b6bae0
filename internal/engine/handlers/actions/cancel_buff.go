package actions

import (
	"github.com/Mun1z/Imgeneus/internal/engine/handlers"
	"github.com/Mun1z/Imgeneus/pkg/api"
)

// HandleCancelBuff снимает свой активный бафф по запросу игрока.
func HandleCancelBuff(ctx handlers.Context, p api.SkillPayload) (handlers.Result, error) {
	if err := ctx.Actor.Effects().CancelBuff(p.SkillID); err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{MsgType: api.ResultInfo}, nil
}
