package cell

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// UDTDataSize is the size of the serialized UDTData struct: a single
	// little endian Uint128 amount.
	UDTDataSize = 16
)

var (
	// ErrAmountOutOfRange is returned for token amounts that don't fit an
	// unsigned 128-bit integer.
	ErrAmountOutOfRange = errors.New("udt amount out of range")

	// maxUDTAmount is 2^128 - 1.
	maxUDTAmount = new(big.Int).Sub(
		new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1),
	)
)

// EncodeUDTData serializes amount as the molecule UDTData struct.
func EncodeUDTData(amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 || amount.Cmp(maxUDTAmount) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrAmountOutOfRange, amount)
	}

	// big.Int gives us big endian bytes, the schema wants little endian.
	be := amount.FillBytes(make([]byte, UDTDataSize))
	le := make([]byte, UDTDataSize)
	for i := range be {
		le[i] = be[UDTDataSize-1-i]
	}

	return le, nil
}

// DecodeUDTData parses and validates a molecule UDTData struct.
func DecodeUDTData(data []byte) (*big.Int, error) {
	if len(data) != UDTDataSize {
		return nil, fmt.Errorf("%w: udt data must be %d bytes, got %d",
			ErrSchemaViolation, UDTDataSize, len(data))
	}

	be := make([]byte, UDTDataSize)
	for i := range data {
		be[i] = data[UDTDataSize-1-i]
	}

	return new(big.Int).SetBytes(be), nil
}
