package engines

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Worker consumes payloads from one queue.
type Worker interface {
	Process(payload []byte) error
}

// Publisher decouples workers from the broker so they can run against an
// in-memory recorder in tests. Enqueue routes through the bindings in
// config/amqp.yml; EnqueueEvent emits member- and market-facing events
// on the topic exchange.
type Publisher interface {
	Enqueue(id string, payload []byte) error
	EnqueueEvent(kind string, id string, event string, payload []byte) error
}

// sqlite has no row locks; its single-writer lock serializes instead.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}

	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
