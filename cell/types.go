package cell

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// HashSize is the size of every hash used by the ledger: transaction
	// hashes, script hashes and data hashes.
	HashSize = 32
)

var (
	// ErrInvalidHex is returned when a string can't be parsed as 0x
	// prefixed hex.
	ErrInvalidHex = errors.New("invalid hex string")
)

// Hash is a 32-byte ckb-hash digest.
type Hash [HashSize]byte

// ZeroHash is the all zero hash.
var ZeroHash Hash

// String returns the 0x prefixed hex encoding of the hash.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero returns true if this is the all zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])

	return b
}

// HashFromHex parses a 0x prefixed (or bare) hex string into a Hash.
func HashFromHex(s string) (Hash, error) {
	var h Hash

	b, err := DecodeHex(s)
	if err != nil {
		return h, err
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("%w: hash must be %d bytes, got %d",
			ErrInvalidHex, HashSize, len(b))
	}

	copy(h[:], b)
	return h, nil
}

// DecodeHex decodes a hex string with an optional 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}

	return b, nil
}

// EncodeHex returns the 0x prefixed hex encoding of b.
func EncodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// HashType selects how a script's code hash is matched against the cells
// referenced by the transaction's cell deps.
type HashType uint8

const (
	// HashTypeData matches the code hash against the data hash of a dep
	// cell.
	HashTypeData HashType = 0

	// HashTypeType matches the code hash against the type script hash of
	// a dep cell.
	HashTypeType HashType = 1

	// HashTypeData1 is HashTypeData executed on the second VM version.
	HashTypeData1 HashType = 2
)

// String returns the RPC name of the hash type.
func (h HashType) String() string {
	switch h {
	case HashTypeData:
		return "data"

	case HashTypeType:
		return "type"

	case HashTypeData1:
		return "data1"

	default:
		return fmt.Sprintf("UnknownHashType(%d)", uint8(h))
	}
}

// ParseHashType maps an RPC hash type name to its HashType.
func ParseHashType(s string) (HashType, error) {
	switch s {
	case "data":
		return HashTypeData, nil

	case "type":
		return HashTypeType, nil

	case "data1":
		return HashTypeData1, nil

	default:
		return 0, fmt.Errorf("unknown hash type: %v", s)
	}
}

// DepType says whether a cell dep points at code directly, or at a dep group
// cell that lists further out points.
type DepType uint8

const (
	// DepTypeCode references a cell whose data is executable code.
	DepTypeCode DepType = 0

	// DepTypeDepGroup references a cell whose data is a list of out
	// points to be expanded.
	DepTypeDepGroup DepType = 1
)

// String returns the RPC name of the dep type.
func (d DepType) String() string {
	switch d {
	case DepTypeCode:
		return "code"

	case DepTypeDepGroup:
		return "dep_group"

	default:
		return fmt.Sprintf("UnknownDepType(%d)", uint8(d))
	}
}

// ParseDepType maps an RPC dep type name to its DepType.
func ParseDepType(s string) (DepType, error) {
	switch s {
	case "code":
		return DepTypeCode, nil

	case "dep_group":
		return DepTypeDepGroup, nil

	default:
		return 0, fmt.Errorf("unknown dep type: %v", s)
	}
}

// Script is either the lock of a cell, which guards who may spend it, or the
// type of a cell, which validates what the cell may contain.
type Script struct {
	// CodeHash identifies the code the script runs.
	CodeHash Hash

	// HashType says how CodeHash is resolved.
	HashType HashType

	// Args is handed to the script when it runs.
	Args []byte
}

// Hash returns the content addressed hash of the script.
func (s Script) Hash() Hash {
	return ContentHash(s.Serialize())
}

// Equal returns true if both scripts have the same code hash, hash type and
// args.
func (s Script) Equal(o Script) bool {
	return s.CodeHash == o.CodeHash && s.HashType == o.HashType &&
		bytes.Equal(s.Args, o.Args)
}

// Copy returns a deep copy of the script.
func (s Script) Copy() Script {
	return Script{
		CodeHash: s.CodeHash,
		HashType: s.HashType,
		Args:     append([]byte(nil), s.Args...),
	}
}

// String returns a human readable representation of the script.
func (s Script) String() string {
	return fmt.Sprintf("Script(code_hash=%v, hash_type=%v, args=%x)",
		s.CodeHash, s.HashType, s.Args)
}

// OutPoint identifies a single output of a previous transaction. It's a
// comparable value so it can key maps directly.
type OutPoint struct {
	// TxHash is the hash of the transaction that created the output.
	TxHash Hash

	// Index is the position of the output within that transaction.
	Index uint32
}

// String returns the canonical txhash:index representation.
func (o OutPoint) String() string {
	return fmt.Sprintf("%v:%d", o.TxHash, o.Index)
}

// CellInput consumes a previous output.
type CellInput struct {
	// PreviousOutput is the cell being consumed.
	PreviousOutput OutPoint

	// Since is the relative or absolute lock time of the input.
	Since uint64
}

// NewCellInput returns an input spending the given output with no since
// constraint.
func NewCellInput(txHash Hash, index uint32) CellInput {
	return CellInput{
		PreviousOutput: OutPoint{
			TxHash: txHash,
			Index:  index,
		},
	}
}

// CellOutput is a newly created cell, minus its data.
type CellOutput struct {
	// Capacity is the amount of shannons held by the cell.
	Capacity uint64

	// Lock guards spending of the cell.
	Lock Script

	// Type optionally validates the cell's contents.
	Type *Script
}

// Copy returns a deep copy of the output.
func (c CellOutput) Copy() CellOutput {
	out := CellOutput{
		Capacity: c.Capacity,
		Lock:     c.Lock.Copy(),
	}
	if c.Type != nil {
		typeScript := c.Type.Copy()
		out.Type = &typeScript
	}

	return out
}

// CellDep makes a live cell visible to the scripts of a transaction without
// spending it.
type CellDep struct {
	// OutPoint locates the dep cell.
	OutPoint OutPoint

	// DepType says how the dep is resolved.
	DepType DepType
}

// NewCodeDep returns a code cell dep on output index of txHash.
func NewCodeDep(txHash Hash, index uint32) CellDep {
	return CellDep{
		OutPoint: OutPoint{
			TxHash: txHash,
			Index:  index,
		},
		DepType: DepTypeCode,
	}
}

// LiveCell is an unspent output as reported by the chain.
type LiveCell struct {
	// OutPoint locates the cell.
	OutPoint OutPoint

	// Output is the cell itself.
	Output CellOutput

	// Data is the cell's data, if the chain returned it.
	Data []byte

	// OutputDataLen is the length of the cell's data. It is set even if
	// the data itself was not fetched.
	OutputDataLen uint64
}

// AsInput returns an input spending this cell.
func (l *LiveCell) AsInput() CellInput {
	return CellInput{
		PreviousOutput: l.OutPoint,
	}
}

// Transaction is a full ledger transaction. A transaction built by this
// module always has one output data entry per output, and one witness per
// input.
type Transaction struct {
	// Version is the transaction version, always zero today.
	Version uint32

	// CellDeps are the live cells the scripts may read.
	CellDeps []CellDep

	// HeaderDeps are block hashes whose headers scripts may read.
	HeaderDeps []Hash

	// Inputs are the cells consumed.
	Inputs []CellInput

	// Outputs are the cells created.
	Outputs []CellOutput

	// OutputsData holds the data of each output, index aligned with
	// Outputs.
	OutputsData [][]byte

	// Witnesses carry the unlock arguments, index aligned with Inputs.
	Witnesses [][]byte
}

// Copy returns a deep copy of the transaction.
func (t *Transaction) Copy() *Transaction {
	c := &Transaction{
		Version:     t.Version,
		CellDeps:    append([]CellDep(nil), t.CellDeps...),
		HeaderDeps:  append([]Hash(nil), t.HeaderDeps...),
		Inputs:      append([]CellInput(nil), t.Inputs...),
		Outputs:     make([]CellOutput, len(t.Outputs)),
		OutputsData: make([][]byte, len(t.OutputsData)),
		Witnesses:   make([][]byte, len(t.Witnesses)),
	}
	for i, out := range t.Outputs {
		c.Outputs[i] = out.Copy()
	}
	for i, data := range t.OutputsData {
		c.OutputsData[i] = append([]byte(nil), data...)
	}
	for i, witness := range t.Witnesses {
		c.Witnesses[i] = append([]byte(nil), witness...)
	}

	return c
}

// Hash returns the transaction hash: the ckb-hash of the serialized raw
// transaction, which excludes the witnesses.
func (t *Transaction) Hash() Hash {
	return ContentHash(t.SerializeRaw())
}

// Validate checks the structural invariants of the transaction.
func (t *Transaction) Validate() error {
	if len(t.Outputs) != len(t.OutputsData) {
		return fmt.Errorf("%w: %d outputs but %d outputs data",
			ErrSchemaViolation, len(t.Outputs), len(t.OutputsData))
	}
	if len(t.Witnesses) < len(t.Inputs) {
		return fmt.Errorf("%w: %d inputs but only %d witnesses",
			ErrSchemaViolation, len(t.Inputs), len(t.Witnesses))
	}

	return nil
}

// WitnessArgs is the standard witness layout. The lock field carries the
// signature of the lock script.
type WitnessArgs struct {
	// Lock is the unlock argument of the lock script.
	Lock []byte

	// InputType is the argument for the type script of the input.
	InputType []byte

	// OutputType is the argument for the type script of the output.
	OutputType []byte
}
