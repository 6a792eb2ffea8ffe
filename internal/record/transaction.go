package record

// TransactionRecord is a timer measurement attributed to a named business
// transaction instead of a single method. One record is produced per
// classified trace, from the root invocation's duration.
type TransactionRecord struct {
	Name string
	*TimerRecord
}

// NewTransactionRecord creates an empty record for the given transaction name.
func NewTransactionRecord(name string) *TransactionRecord {
	return &TransactionRecord{Name: name, TimerRecord: NewTimerRecord(0, 0)}
}

// Merge folds other into r in place; the caller guarantees both records carry
// the same transaction name.
func (r *TransactionRecord) Merge(other *TransactionRecord) {
	if other == nil {
		return
	}
	r.TimerRecord.Merge(other.TimerRecord)
}

// Clone returns a deep copy of r.
func (r *TransactionRecord) Clone() *TransactionRecord {
	return &TransactionRecord{Name: r.Name, TimerRecord: r.TimerRecord.Clone()}
}

// Equal reports domain equality between two transaction records.
func (r *TransactionRecord) Equal(other *TransactionRecord) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Name == other.Name && r.TimerRecord.Equal(other.TimerRecord)
}
