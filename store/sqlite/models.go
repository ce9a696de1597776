package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/subsplit/store"
)

type recordModel struct {
	grove.BaseModel `grove:"table:subsplit_records"`

	Kind      string    `grove:"kind,pk"`
	RecordID  string    `grove:"record_id,pk"`
	Value     []byte    `grove:"value,type:blob"`
	Deleted   bool      `grove:"deleted"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toRecordModels(writes []store.Write, now time.Time) []recordModel {
	writes = store.Compact(writes)
	models := make([]recordModel, len(writes))
	for i, w := range writes {
		m := recordModel{
			Kind:      string(w.Key.Kind),
			RecordID:  w.Key.ID,
			Value:     w.Value,
			Deleted:   w.Delete,
			UpdatedAt: now,
		}
		if w.Delete || m.Value == nil {
			m.Value = []byte{}
		}
		models[i] = m
	}
	return models
}
