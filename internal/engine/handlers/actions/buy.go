package actions

import (
	"fmt"

	"github.com/Mun1z/Imgeneus/internal/domain"
	"github.com/Mun1z/Imgeneus/internal/engine/handlers"
	"github.com/Mun1z/Imgeneus/internal/network"
	"github.com/Mun1z/Imgeneus/pkg/api"
	"github.com/Mun1z/Imgeneus/pkg/logger"

	"github.com/sirupsen/logrus"
)

// HandleBuy покупает предмет из каталога. Деньги и место проверяются до списания.
func HandleBuy(ctx handlers.Context, p api.BuyPayload) (handlers.Result, error) {
	actor := ctx.Actor

	tpl, ok := ctx.Catalog.LookupItem(p.Type, p.TypeID)
	if !ok {
		return handlers.Result{}, fmt.Errorf("%w: no item %d/%d", domain.ErrItemNotFound, p.Type, p.TypeID)
	}

	item, err := actor.Buy(tpl, p.Count)
	if err != nil {
		return handlers.Result{}, err
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "buy_handler",
		"actor_id":  actor.ID(),
		"item_name": item.Name,
		"gold_left": actor.Gold(),
	}).Info("Item bought")

	return handlers.Result{
		Msg:     fmt.Sprintf("%s buys %dx %s.", actor.Name(), item.Count, item.Name),
		MsgType: api.ResultInfo,
		Data:    network.ItemView(item),
	}, nil
}
