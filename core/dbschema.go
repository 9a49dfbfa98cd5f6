package core

import (
	"github.com/lib/pq"
)

// EventRecord is the persisted form of an Event.
// Refs holds "name:value" pairs of the tags for array overlap queries.
type EventRecord struct {
	ID        string         `json:"id" gorm:"primaryKey;type:text"`
	PubKey    string         `json:"pubkey" gorm:"type:text;index"`
	Timestamp int64          `json:"created_at" gorm:"column:created_at;index"`
	Kind      int            `json:"kind" gorm:"index"`
	Tags      string         `json:"tags" gorm:"type:json"`
	Refs      pq.StringArray `json:"-" gorm:"type:text[];index:idx_event_refs,type:gin"`
	Content   string         `json:"content" gorm:"type:text"`
	Sig       string         `json:"sig" gorm:"type:text"`
}

func (EventRecord) TableName() string {
	return "events"
}
