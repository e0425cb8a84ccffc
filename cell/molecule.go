package cell

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nervosnetwork/ckb-sdk-go/v2/types/molecule"
)

const (
	// numberSize is the size of the molecule header words.
	numberSize = 4

	// OutPointSize is the serialized size of an OutPoint.
	OutPointSize = HashSize + 4

	// CellInputSize is the serialized size of a CellInput.
	CellInputSize = 8 + OutPointSize

	// CellDepSize is the serialized size of a CellDep.
	CellDepSize = OutPointSize + 1
)

var (
	// ErrSchemaViolation is returned when bytes don't match the molecule
	// layout they claim to have. It always indicates a programming error
	// on the producing side.
	ErrSchemaViolation = errors.New("molecule schema violation")
)

func schemaErr(what string, err error) error {
	return fmt.Errorf("%s: %w: %v", what, ErrSchemaViolation, err)
}

func packUint32(v uint32) molecule.Uint32 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)

	return *molecule.Uint32FromSliceUnchecked(b[:])
}

func packUint64(v uint64) molecule.Uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)

	return *molecule.Uint64FromSliceUnchecked(b[:])
}

func packByte(v byte) molecule.Byte {
	return *molecule.ByteFromSliceUnchecked([]byte{v})
}

func packHash(h Hash) molecule.Byte32 {
	return *molecule.Byte32FromSliceUnchecked(append([]byte{}, h[:]...))
}

func packBytes(b []byte) molecule.Bytes {
	builder := molecule.NewBytesBuilder()
	for _, v := range b {
		builder.Push(packByte(v))
	}

	return builder.Build()
}

// packBytesOpt packs a BytesOpt value. A nil slice is None.
func packBytesOpt(b []byte) molecule.BytesOpt {
	if b == nil {
		return molecule.BytesOptDefault()
	}

	return molecule.NewBytesOptBuilder().Set(packBytes(b)).Build()
}

// unpackBytesOpt reads a BytesOpt value. None is returned as nil.
func unpackBytesOpt(opt *molecule.BytesOpt) ([]byte, error) {
	if opt.IsNone() {
		return nil, nil
	}

	b, err := opt.IntoBytes()
	if err != nil {
		return nil, err
	}

	return append([]byte{}, b.RawData()...), nil
}

func (s Script) pack() molecule.Script {
	return molecule.NewScriptBuilder().
		CodeHash(packHash(s.CodeHash)).
		HashType(packByte(byte(s.HashType))).
		Args(packBytes(s.Args)).
		Build()
}

func unpackScript(m *molecule.Script) Script {
	var s Script
	copy(s.CodeHash[:], m.CodeHash().AsSlice())
	s.HashType = HashType(m.HashType().AsSlice()[0])
	s.Args = append([]byte{}, m.Args().RawData()...)

	return s
}

// Serialize returns the molecule encoding of the script.
func (s Script) Serialize() []byte {
	packed := s.pack()
	return packed.AsSlice()
}

// DecodeScript parses and validates a molecule Script.
func DecodeScript(data []byte) (Script, error) {
	m, err := molecule.ScriptFromSlice(data, false)
	if err != nil {
		return Script{}, schemaErr("script", err)
	}

	return unpackScript(m), nil
}

func (o OutPoint) pack() molecule.OutPoint {
	return molecule.NewOutPointBuilder().
		TxHash(packHash(o.TxHash)).
		Index(packUint32(o.Index)).
		Build()
}

// Serialize returns the molecule encoding of the out point.
func (o OutPoint) Serialize() []byte {
	packed := o.pack()
	return packed.AsSlice()
}

// DecodeOutPoint parses a molecule OutPoint.
func DecodeOutPoint(data []byte) (OutPoint, error) {
	m, err := molecule.OutPointFromSlice(data, false)
	if err != nil {
		return OutPoint{}, schemaErr("out point", err)
	}

	var o OutPoint
	copy(o.TxHash[:], m.TxHash().AsSlice())
	o.Index = binary.LittleEndian.Uint32(m.Index().AsSlice())

	return o, nil
}

func (c CellInput) pack() molecule.CellInput {
	return molecule.NewCellInputBuilder().
		Since(packUint64(c.Since)).
		PreviousOutput(c.PreviousOutput.pack()).
		Build()
}

// Serialize returns the molecule encoding of the input.
func (c CellInput) Serialize() []byte {
	packed := c.pack()
	return packed.AsSlice()
}

func (c CellDep) pack() molecule.CellDep {
	return molecule.NewCellDepBuilder().
		OutPoint(c.OutPoint.pack()).
		DepType(packByte(byte(c.DepType))).
		Build()
}

// Serialize returns the molecule encoding of the cell dep.
func (c CellDep) Serialize() []byte {
	packed := c.pack()
	return packed.AsSlice()
}

func (c CellOutput) pack() molecule.CellOutput {
	typeScript := molecule.ScriptOptDefault()
	if c.Type != nil {
		typeScript = molecule.NewScriptOptBuilder().
			Set(c.Type.pack()).
			Build()
	}

	return molecule.NewCellOutputBuilder().
		Capacity(packUint64(c.Capacity)).
		Lock(c.Lock.pack()).
		Type(typeScript).
		Build()
}

// Serialize returns the molecule encoding of the output.
func (c CellOutput) Serialize() []byte {
	packed := c.pack()
	return packed.AsSlice()
}

// DecodeCellOutput parses and validates a molecule CellOutput.
func DecodeCellOutput(data []byte) (CellOutput, error) {
	m, err := molecule.CellOutputFromSlice(data, false)
	if err != nil {
		return CellOutput{}, schemaErr("cell output", err)
	}

	out := CellOutput{
		Capacity: binary.LittleEndian.Uint64(m.Capacity().AsSlice()),
		Lock:     unpackScript(m.Lock()),
	}

	typeOpt := m.Type()
	if !typeOpt.IsNone() {
		typeScript, err := typeOpt.IntoScript()
		if err != nil {
			return CellOutput{}, schemaErr("type", err)
		}

		script := unpackScript(typeScript)
		out.Type = &script
	}

	return out, nil
}

// Serialize returns the molecule encoding of the witness args.
func (w WitnessArgs) Serialize() []byte {
	packed := molecule.NewWitnessArgsBuilder().
		Lock(packBytesOpt(w.Lock)).
		InputType(packBytesOpt(w.InputType)).
		OutputType(packBytesOpt(w.OutputType)).
		Build()

	return packed.AsSlice()
}

// DecodeWitnessArgs parses and validates a molecule WitnessArgs.
func DecodeWitnessArgs(data []byte) (WitnessArgs, error) {
	m, err := molecule.WitnessArgsFromSlice(data, false)
	if err != nil {
		return WitnessArgs{}, schemaErr("witness args", err)
	}

	var w WitnessArgs
	if w.Lock, err = unpackBytesOpt(m.Lock()); err != nil {
		return w, schemaErr("witness lock", err)
	}
	if w.InputType, err = unpackBytesOpt(m.InputType()); err != nil {
		return w, schemaErr("witness input type", err)
	}
	if w.OutputType, err = unpackBytesOpt(m.OutputType()); err != nil {
		return w, schemaErr("witness output type", err)
	}

	return w, nil
}

func (t *Transaction) packRaw() molecule.RawTransaction {
	deps := molecule.NewCellDepVecBuilder()
	for _, dep := range t.CellDeps {
		deps.Push(dep.pack())
	}

	headerDeps := molecule.NewByte32VecBuilder()
	for _, header := range t.HeaderDeps {
		headerDeps.Push(packHash(header))
	}

	inputs := molecule.NewCellInputVecBuilder()
	for _, input := range t.Inputs {
		inputs.Push(input.pack())
	}

	outputs := molecule.NewCellOutputVecBuilder()
	for _, output := range t.Outputs {
		outputs.Push(output.pack())
	}

	outputsData := molecule.NewBytesVecBuilder()
	for _, data := range t.OutputsData {
		outputsData.Push(packBytes(data))
	}

	return molecule.NewRawTransactionBuilder().
		Version(packUint32(t.Version)).
		CellDeps(deps.Build()).
		HeaderDeps(headerDeps.Build()).
		Inputs(inputs.Build()).
		Outputs(outputs.Build()).
		OutputsData(outputsData.Build()).
		Build()
}

// SerializeRaw returns the molecule encoding of the RawTransaction, the part
// of the transaction that is hashed.
func (t *Transaction) SerializeRaw() []byte {
	raw := t.packRaw()
	return raw.AsSlice()
}

// Serialize returns the molecule encoding of the full transaction.
func (t *Transaction) Serialize() []byte {
	witnesses := molecule.NewBytesVecBuilder()
	for _, witness := range t.Witnesses {
		witnesses.Push(packBytes(witness))
	}

	packed := molecule.NewTransactionBuilder().
		Raw(t.packRaw()).
		Witnesses(witnesses.Build()).
		Build()

	return packed.AsSlice()
}

// SerializedSize is the size of the serialized transaction as counted by
// the ledger's fee rules, which add 4 bytes for the block's offset table.
func (t *Transaction) SerializedSize() int {
	return len(t.Serialize()) + numberSize
}
