package chainrpc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cellforge/udtforge/cell"
)

// HexUint64 is a uint64 carried as a 0x prefixed hex string.
type HexUint64 uint64

// MarshalText implements encoding.TextMarshaler.
func (h HexUint64) MarshalText() ([]byte, error) {
	return []byte("0x" + strconv.FormatUint(uint64(h), 16)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HexUint64) UnmarshalText(text []byte) error {
	s := string(text)
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("hex number without 0x prefix: %q", s)
	}

	v, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return fmt.Errorf("invalid hex number %q: %w", s, err)
	}
	*h = HexUint64(v)

	return nil
}

// HexBytes is a byte slice carried as a 0x prefixed hex string.
type HexBytes []byte

// MarshalText implements encoding.TextMarshaler.
func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(cell.EncodeHex(h)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HexBytes) UnmarshalText(text []byte) error {
	b, err := cell.DecodeHex(string(text))
	if err != nil {
		return err
	}
	*h = b

	return nil
}

// HexHash is a 32-byte hash carried as a 0x prefixed hex string.
type HexHash cell.Hash

// MarshalText implements encoding.TextMarshaler.
func (h HexHash) MarshalText() ([]byte, error) {
	return []byte(cell.Hash(h).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HexHash) UnmarshalText(text []byte) error {
	hash, err := cell.HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = HexHash(hash)

	return nil
}

// Script is the JSON form of a script.
type Script struct {
	CodeHash HexHash  `json:"code_hash"`
	HashType string   `json:"hash_type"`
	Args     HexBytes `json:"args"`
}

// OutPoint is the JSON form of an out point.
type OutPoint struct {
	TxHash HexHash   `json:"tx_hash"`
	Index  HexUint64 `json:"index"`
}

// CellInput is the JSON form of an input.
type CellInput struct {
	PreviousOutput OutPoint  `json:"previous_output"`
	Since          HexUint64 `json:"since"`
}

// CellOutput is the JSON form of an output.
type CellOutput struct {
	Capacity HexUint64 `json:"capacity"`
	Lock     Script    `json:"lock"`
	Type     *Script   `json:"type"`
}

// CellDep is the JSON form of a cell dep.
type CellDep struct {
	OutPoint OutPoint `json:"out_point"`
	DepType  string   `json:"dep_type"`
}

// Transaction is the JSON form of a transaction. Hash is only set in
// responses.
type Transaction struct {
	Version     HexUint64    `json:"version"`
	CellDeps    []CellDep    `json:"cell_deps"`
	HeaderDeps  []HexHash    `json:"header_deps"`
	Inputs      []CellInput  `json:"inputs"`
	Outputs     []CellOutput `json:"outputs"`
	OutputsData []HexBytes   `json:"outputs_data"`
	Witnesses   []HexBytes   `json:"witnesses"`
	Hash        *HexHash     `json:"hash,omitempty"`
}

// Header is the subset of a block header we read.
type Header struct {
	Number HexUint64 `json:"number"`
	Hash   HexHash   `json:"hash"`
}

// Block is the JSON form of a block.
type Block struct {
	Header       Header        `json:"header"`
	Transactions []Transaction `json:"transactions"`
}

// TxStatus is the status of a transaction as seen by the node.
type TxStatus struct {
	Status    string   `json:"status"`
	BlockHash *HexHash `json:"block_hash"`
}

// TransactionWithStatus is the result of get_transaction.
type TransactionWithStatus struct {
	Transaction *Transaction `json:"transaction"`
	TxStatus    TxStatus     `json:"tx_status"`
}

// IndexerCell is a live cell as returned by the indexer.
type IndexerCell struct {
	Output      CellOutput `json:"output"`
	OutputData  HexBytes   `json:"output_data"`
	OutPoint    OutPoint   `json:"out_point"`
	BlockNumber HexUint64  `json:"block_number"`
	TxIndex     HexUint64  `json:"tx_index"`
}

// SearchKey selects the cells returned by get_cells.
type SearchKey struct {
	Script     Script `json:"script"`
	ScriptType string `json:"script_type"`
	WithData   bool   `json:"with_data"`
}

// cellsPage is one page of get_cells results.
type cellsPage struct {
	Objects    []IndexerCell `json:"objects"`
	LastCursor string        `json:"last_cursor"`
}

// NewScript converts a script into its JSON form.
func NewScript(s cell.Script) Script {
	return Script{
		CodeHash: HexHash(s.CodeHash),
		HashType: s.HashType.String(),
		Args:     append(HexBytes{}, s.Args...),
	}
}

// ToCell converts the JSON script back.
func (s Script) ToCell() (cell.Script, error) {
	hashType, err := cell.ParseHashType(s.HashType)
	if err != nil {
		return cell.Script{}, err
	}

	return cell.Script{
		CodeHash: cell.Hash(s.CodeHash),
		HashType: hashType,
		Args:     append([]byte{}, s.Args...),
	}, nil
}

func newOutPoint(op cell.OutPoint) OutPoint {
	return OutPoint{
		TxHash: HexHash(op.TxHash),
		Index:  HexUint64(op.Index),
	}
}

// ToCell converts the JSON out point back.
func (o OutPoint) ToCell() (cell.OutPoint, error) {
	if o.Index > HexUint64(^uint32(0)) {
		return cell.OutPoint{}, fmt.Errorf("out point index %d out "+
			"of range", o.Index)
	}

	return cell.OutPoint{
		TxHash: cell.Hash(o.TxHash),
		Index:  uint32(o.Index),
	}, nil
}

// NewCellOutput converts an output into its JSON form.
func NewCellOutput(out cell.CellOutput) CellOutput {
	c := CellOutput{
		Capacity: HexUint64(out.Capacity),
		Lock:     NewScript(out.Lock),
	}
	if out.Type != nil {
		t := NewScript(*out.Type)
		c.Type = &t
	}

	return c
}

// ToCell converts the JSON output back.
func (c CellOutput) ToCell() (cell.CellOutput, error) {
	lock, err := c.Lock.ToCell()
	if err != nil {
		return cell.CellOutput{}, err
	}

	out := cell.CellOutput{
		Capacity: uint64(c.Capacity),
		Lock:     lock,
	}
	if c.Type != nil {
		t, err := c.Type.ToCell()
		if err != nil {
			return cell.CellOutput{}, err
		}
		out.Type = &t
	}

	return out, nil
}

// NewTransaction converts a transaction into its JSON form.
func NewTransaction(tx *cell.Transaction) *Transaction {
	t := &Transaction{
		Version:     HexUint64(tx.Version),
		CellDeps:    make([]CellDep, 0, len(tx.CellDeps)),
		HeaderDeps:  make([]HexHash, 0, len(tx.HeaderDeps)),
		Inputs:      make([]CellInput, 0, len(tx.Inputs)),
		Outputs:     make([]CellOutput, 0, len(tx.Outputs)),
		OutputsData: make([]HexBytes, 0, len(tx.OutputsData)),
		Witnesses:   make([]HexBytes, 0, len(tx.Witnesses)),
	}
	for _, dep := range tx.CellDeps {
		t.CellDeps = append(t.CellDeps, CellDep{
			OutPoint: newOutPoint(dep.OutPoint),
			DepType:  dep.DepType.String(),
		})
	}
	for _, h := range tx.HeaderDeps {
		t.HeaderDeps = append(t.HeaderDeps, HexHash(h))
	}
	for _, in := range tx.Inputs {
		t.Inputs = append(t.Inputs, CellInput{
			PreviousOutput: newOutPoint(in.PreviousOutput),
			Since:          HexUint64(in.Since),
		})
	}
	for _, out := range tx.Outputs {
		t.Outputs = append(t.Outputs, NewCellOutput(out))
	}
	for _, data := range tx.OutputsData {
		t.OutputsData = append(
			t.OutputsData, append(HexBytes{}, data...),
		)
	}
	for _, w := range tx.Witnesses {
		t.Witnesses = append(t.Witnesses, append(HexBytes{}, w...))
	}

	return t
}

// ToCell converts the JSON transaction back.
func (t *Transaction) ToCell() (*cell.Transaction, error) {
	tx := &cell.Transaction{
		Version: uint32(t.Version),
	}
	for _, dep := range t.CellDeps {
		op, err := dep.OutPoint.ToCell()
		if err != nil {
			return nil, err
		}
		depType, err := cell.ParseDepType(dep.DepType)
		if err != nil {
			return nil, err
		}
		tx.CellDeps = append(tx.CellDeps, cell.CellDep{
			OutPoint: op,
			DepType:  depType,
		})
	}
	for _, h := range t.HeaderDeps {
		tx.HeaderDeps = append(tx.HeaderDeps, cell.Hash(h))
	}
	for _, in := range t.Inputs {
		op, err := in.PreviousOutput.ToCell()
		if err != nil {
			return nil, err
		}
		tx.Inputs = append(tx.Inputs, cell.CellInput{
			PreviousOutput: op,
			Since:          uint64(in.Since),
		})
	}
	for _, out := range t.Outputs {
		o, err := out.ToCell()
		if err != nil {
			return nil, err
		}
		tx.Outputs = append(tx.Outputs, o)
	}
	for _, data := range t.OutputsData {
		tx.OutputsData = append(tx.OutputsData, []byte(data))
	}
	for _, w := range t.Witnesses {
		tx.Witnesses = append(tx.Witnesses, []byte(w))
	}

	return tx, nil
}

// ToLiveCell converts an indexer cell into a live cell.
func (c IndexerCell) ToLiveCell() (*cell.LiveCell, error) {
	op, err := c.OutPoint.ToCell()
	if err != nil {
		return nil, err
	}
	out, err := c.Output.ToCell()
	if err != nil {
		return nil, err
	}

	return &cell.LiveCell{
		OutPoint:      op,
		Output:        out,
		Data:          append([]byte(nil), c.OutputData...),
		OutputDataLen: uint64(len(c.OutputData)),
	}, nil
}
