package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"

	"github.com/xraph/subsplit/store"
)

type recordModel struct {
	grove.BaseModel `grove:"table:subsplit_records"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Kind      string    `grove:"kind"       bson:"kind"`
	RecordID  string    `grove:"record_id"  bson:"record_id"`
	Value     []byte    `grove:"value"      bson:"value"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

// toWriteModels maps a commit batch onto ordered bulk-write models.
func toWriteModels(writes []store.Write, now time.Time) []mongo.WriteModel {
	writes = store.Compact(writes)
	models := make([]mongo.WriteModel, 0, len(writes))
	for _, w := range writes {
		filter := bson.M{"_id": w.Key.String()}
		if w.Delete {
			models = append(models, mongo.NewDeleteOneModel().SetFilter(filter))
			continue
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(&recordModel{
				ID:        w.Key.String(),
				Kind:      string(w.Key.Kind),
				RecordID:  w.Key.ID,
				Value:     w.Value,
				UpdatedAt: now,
			}).
			SetUpsert(true))
	}
	return models
}
