package cell

import (
	"errors"
	"fmt"
	"math/bits"
)

const (
	// ShannonsPerCKByte is the number of shannons in one CKByte. One
	// CKByte of capacity pays for one byte of on-chain storage.
	ShannonsPerCKByte uint64 = 100_000_000

	// OutputBaseSize is the size in bytes every output is charged for
	// before its data: 8 bytes of capacity plus a default lock (32 byte
	// code hash, 1 byte hash type and 20 bytes of args).
	OutputBaseSize uint64 = 61

	// BlobSafetyMargin is the extra capacity in shannons put into a code
	// cell on top of its size, so it stays live as a dep indefinitely.
	BlobSafetyMargin uint64 = 10_000_000_000

	// capacityFieldSize is the size of the capacity field of an output.
	capacityFieldSize uint64 = 8

	// scriptFixedSize is the size of a script's code hash and hash type.
	scriptFixedSize uint64 = HashSize + 1
)

var (
	// ErrCapacityOverflow is returned when a capacity computation
	// overflows 64 bits.
	ErrCapacityOverflow = errors.New("capacity overflow")

	// ErrOutputCapacityTooLow is returned when an output holds less
	// capacity than the storage it occupies.
	ErrOutputCapacityTooLow = errors.New("output capacity below " +
		"occupied capacity")
)

// OutputIntent is an output a caller wants in a transaction, together with
// its data.
type OutputIntent struct {
	// Output is the cell to be created.
	Output CellOutput

	// Data is the output's data.
	Data []byte

	// PendingTypeArgs marks the output's type script args as a
	// placeholder. They can only be filled in once the inputs of the
	// transaction are known, and a transaction with pending args must
	// never be signed.
	PendingTypeArgs bool
}

// Add returns a + b, or ErrCapacityOverflow.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrCapacityOverflow
	}

	return sum, nil
}

// ToShannons converts CKBytes into shannons.
func ToShannons(ckBytes uint64) (uint64, error) {
	hi, lo := bits.Mul64(ckBytes, ShannonsPerCKByte)
	if hi != 0 {
		return 0, ErrCapacityOverflow
	}

	return lo, nil
}

// MinimumCapacity is the capacity in shannons the intents need at least:
// OutputBaseSize per output plus the exact length of each output's data.
// The sum doesn't depend on the order of the intents. Callers add headroom
// for scripts larger than the default lock.
func MinimumCapacity(intents ...OutputIntent) (uint64, error) {
	var size uint64
	for _, intent := range intents {
		var err error
		size, err = Add(size, OutputBaseSize)
		if err != nil {
			return 0, err
		}
		size, err = Add(size, uint64(len(intent.Data)))
		if err != nil {
			return 0, err
		}
	}

	return ToShannons(size)
}

// CapacityForBlob is the capacity in shannons for a cell holding a code blob
// of byteLen bytes: the blob's size plus BlobSafetyMargin.
func CapacityForBlob(byteLen int) (uint64, error) {
	if byteLen < 0 {
		return 0, fmt.Errorf("negative blob length %d", byteLen)
	}

	shannons, err := ToShannons(uint64(byteLen))
	if err != nil {
		return 0, err
	}

	return Add(shannons, BlobSafetyMargin)
}

// OccupiedCapacity is the exact capacity in shannons the output occupies
// once it holds data.
func OccupiedCapacity(output CellOutput, data []byte) (uint64, error) {
	size := capacityFieldSize + scriptFixedSize +
		uint64(len(output.Lock.Args)) + uint64(len(data))
	if output.Type != nil {
		size += scriptFixedSize + uint64(len(output.Type.Args))
	}

	return ToShannons(size)
}

// CheckOutputCapacity returns ErrOutputCapacityTooLow if the output doesn't
// hold enough capacity for itself and its data.
func CheckOutputCapacity(output CellOutput, data []byte) error {
	occupied, err := OccupiedCapacity(output, data)
	if err != nil {
		return err
	}
	if output.Capacity < occupied {
		return fmt.Errorf("%w: have %d shannons, need %d",
			ErrOutputCapacityTooLow, output.Capacity, occupied)
	}

	return nil
}
