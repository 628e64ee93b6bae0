package actions

import (
	"fmt"

	"github.com/Mun1z/Imgeneus/internal/engine/handlers"
	"github.com/Mun1z/Imgeneus/pkg/api"
	"github.com/Mun1z/Imgeneus/pkg/logger"

	"github.com/sirupsen/logrus"
)

// HandleUseItem обрабатывает команду USE_ITEM - использование предмета (зелья, свитки)
func HandleUseItem(ctx handlers.Context, p api.ItemSlotPayload) (handlers.Result, error) {
	actor := ctx.Actor

	item := actor.Inventory().Get(p.Bag, p.Slot)
	name := ""
	if item != nil {
		name = item.Name
	}

	if err := actor.UseItem(p.Bag, p.Slot, ctx.Catalog); err != nil {
		return handlers.Result{}, err
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "use_item_handler",
		"actor_id":  actor.ID(),
		"item_name": name,
	}).Info("Item used successfully")

	return handlers.Result{
		Msg:     fmt.Sprintf("%s uses %s.", actor.Name(), name),
		MsgType: api.ResultInfo,
	}, nil
}
