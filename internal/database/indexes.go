package repository

import (
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureIndexes creates the indexes the console queries rely on.
func (m *MongoDB) EnsureIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	// sort_at is derived per row, so these narrow the conversation match and the
	// sort runs as a top-k over the matched rows
	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{"order_number", 1}, {"created_at", -1}, {"timestamp", -1}}},
		{Keys: bson.D{{"phone", 1}, {"created_at", -1}, {"timestamp", -1}}},
	}
	if _, err = db.Collection(messagesCollection).Indexes().CreateMany(m.ctx, messageIndexes); err != nil {
		return fmt.Errorf("mongodb create message indexes: %w", err)
	}

	orderIndex := mongo.IndexModel{
		Keys: bson.D{{"confirmation_sent_at", -1}},
	}
	if _, err = db.Collection(ordersCollection).Indexes().CreateOne(m.ctx, orderIndex); err != nil {
		return fmt.Errorf("mongodb create order index: %w", err)
	}

	return nil
}
