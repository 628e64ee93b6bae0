package actions

import (
	"fmt"

	"github.com/Mun1z/Imgeneus/internal/engine/handlers"
	"github.com/Mun1z/Imgeneus/internal/network"
	"github.com/Mun1z/Imgeneus/pkg/api"
	"github.com/Mun1z/Imgeneus/pkg/logger"

	"github.com/sirupsen/logrus"
)

// HandleDrop обрабатывает команду DROP - выброс предмета из инвентаря.
// Count == 0 выбрасывает всю пачку.
func HandleDrop(ctx handlers.Context, p api.ItemSlotPayload) (handlers.Result, error) {
	actor := ctx.Actor

	dropped, err := actor.Drop(p.Bag, p.Slot, p.Count)
	if err != nil {
		return handlers.Result{}, err
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "drop_handler",
		"actor_id":  actor.ID(),
		"item_name": dropped.Name,
		"count":     dropped.Count,
	}).Info("Item dropped successfully")

	return handlers.Result{
		Msg:     fmt.Sprintf("%s drops %dx %s.", actor.Name(), dropped.Count, dropped.Name),
		MsgType: api.ResultInfo,
		Data:    network.ItemView(dropped),
	}, nil
}
