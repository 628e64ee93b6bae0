package actions

import (
	"github.com/Mun1z/Imgeneus/internal/engine/handlers"
	"github.com/Mun1z/Imgeneus/internal/network"
	"github.com/Mun1z/Imgeneus/pkg/api"
	"github.com/Mun1z/Imgeneus/pkg/logger"

	"github.com/sirupsen/logrus"
)

// HandleMoveItem перемещает предмет между координатами инвентаря.
// Попадание в сумку 0 надевает предмет, уход из неё снимает.
func HandleMoveItem(ctx handlers.Context, p api.MoveItemPayload) (handlers.Result, error) {
	actor := ctx.Actor

	src, dst, err := actor.Inventory().MoveItem(p.SrcBag, p.SrcSlot, p.DstBag, p.DstSlot)
	if err != nil {
		return handlers.Result{}, err
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "move_item_handler",
		"actor_id":  actor.ID(),
		"src":       [2]int{p.SrcBag, p.SrcSlot},
		"dst":       [2]int{p.DstBag, p.DstSlot},
	}).Debug("Item moved")

	return handlers.Result{
		MsgType: api.ResultInfo,
		Data:    []api.SlotView{network.SlotView(src), network.SlotView(dst)},
	}, nil
}
