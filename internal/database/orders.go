package repository

import (
	"WaConsole/entity"
	"context"
)

// SubscribeOrders streams the orders window: the newest q.Limit orders as a snapshot
// batch, then live changes.
func (m *MongoDB) SubscribeOrders(ctx context.Context, q entity.Query, onBatch func([]entity.OrderChange), onError func(error)) (func(), error) {
	spec, err := m.newStreamSpec(ordersCollection, q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)

	go runStream(ctx, m, spec,
		func(doc *entity.OrderDoc) interface{} { return doc.ID },
		func(batch []streamChange[entity.OrderDoc]) {
			changes := make([]entity.OrderChange, 0, len(batch))
			for _, ch := range batch {
				changes = append(changes, entity.OrderChange{
					ID:  ch.ID,
					Op:  ch.Op,
					Doc: ch.Doc,
				})
			}
			onBatch(changes)
		},
		onError,
	)

	return cancel, nil
}
