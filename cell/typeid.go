package cell

import "fmt"

// TypeIDRecord is the molecule struct a type-id is derived from: the out
// point of the input consumed when the singleton cell was minted. Since an
// out point can only ever be consumed once, two mints can never share a
// record, and therefore never share a type-id.
type TypeIDRecord struct {
	// TxHash is the hash of the transaction that created the consumed
	// cell.
	TxHash Hash

	// Index is the output index of the consumed cell.
	Index uint32
}

// Serialize returns the molecule encoding of the record.
func (r TypeIDRecord) Serialize() []byte {
	return OutPoint{TxHash: r.TxHash, Index: r.Index}.Serialize()
}

// DecodeTypeIDRecord parses and validates a molecule TypeIDRecord.
func DecodeTypeIDRecord(data []byte) (TypeIDRecord, error) {
	o, err := DecodeOutPoint(data)
	if err != nil {
		return TypeIDRecord{}, fmt.Errorf("type id record: %w", err)
	}

	return TypeIDRecord{TxHash: o.TxHash, Index: o.Index}, nil
}

// TypeIDArgs derives the type script args of a type-id guarded cell minted
// by consuming the given out point.
func TypeIDArgs(consumed OutPoint) []byte {
	record := TypeIDRecord{
		TxHash: consumed.TxHash,
		Index:  consumed.Index,
	}
	digest := ContentHash(record.Serialize())

	return digest.Bytes()
}
