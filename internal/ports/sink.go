package ports

import "carlog/internal/domain"

// RecordSink persists ordered batches of trip records. Constructors write
// any header the format needs; WriteRows must keep batch order.
type RecordSink interface {
	WriteRows(recs []domain.Record) error
	Close() error
	Name() string
}
