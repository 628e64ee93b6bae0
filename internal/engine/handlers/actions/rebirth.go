package actions

import (
	"github.com/Mun1z/Imgeneus/internal/engine/handlers"
	"github.com/Mun1z/Imgeneus/internal/network"
	"github.com/Mun1z/Imgeneus/pkg/api"
)

func HandleRebirth(ctx handlers.Context) (handlers.Result, error) {
	if err := ctx.Actor.Rebirth(); err != nil {
		return handlers.Result{}, err
	}
	return handlers.Result{
		Msg:     ctx.Actor.Name() + " is reborn.",
		MsgType: api.ResultInfo,
		Data:    network.StatsView(ctx.Actor),
	}, nil
}
