package actions

import (
	"github.com/Mun1z/Imgeneus/internal/engine/handlers"
	"github.com/Mun1z/Imgeneus/internal/network"
	"github.com/Mun1z/Imgeneus/pkg/api"
)

// HandleInit отдаёт полный снимок персонажа (первая отрисовка).
func HandleInit(ctx handlers.Context) (handlers.Result, error) {
	return handlers.Result{
		Msg:     "Welcome, " + ctx.Actor.Name() + ".",
		MsgType: api.ResultInfo,
		Data:    network.CharacterView(ctx.Actor, ctx.Now),
	}, nil
}
