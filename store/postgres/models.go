package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/subsplit/store"
)

type recordModel struct {
	grove.BaseModel `grove:"table:subsplit_records"`

	Kind      string    `grove:"kind,pk"`
	RecordID  string    `grove:"record_id,pk"`
	Value     []byte    `grove:"value,type:bytea"`
	Deleted   bool      `grove:"deleted"`
	UpdatedAt time.Time `grove:"updated_at"`
}

// toRecordModels maps a commit batch onto rows. Deletes become tombstones so
// the whole batch applies as one upsert statement.
func toRecordModels(writes []store.Write, now time.Time) []recordModel {
	writes = store.Compact(writes)
	models := make([]recordModel, len(writes))
	for i, w := range writes {
		models[i] = recordModel{
			Kind:      string(w.Key.Kind),
			RecordID:  w.Key.ID,
			Value:     w.Value,
			Deleted:   w.Delete,
			UpdatedAt: now,
		}
		if w.Delete {
			models[i].Value = []byte{}
		}
	}
	return models
}
