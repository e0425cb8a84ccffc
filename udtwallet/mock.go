package udtwallet

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/chainrpc"
	"github.com/cellforge/udtforge/udtscript"
)

// Script exit codes returned by the mock scripts.
const (
	MockCodeArgsLength    int64 = -1
	MockCodeEncoding      int64 = -2
	MockCodeTypeIDInvalid int64 = -3
	MockCodeSignature     int64 = -31
	MockCodeAmount        int64 = -52
)

// MockScript validates a type script against a transaction. inputs are the
// resolved inputs of the transaction. A non-zero return value is the exit
// code of a failed script.
type MockScript func(tx *cell.Transaction, inputs []*cell.LiveCell,
	script cell.Script) int64

// MockChain is an in-memory ledger. It resolves inputs and deps, checks
// capacity, verifies the default lock signature and runs registered type
// scripts before applying a transaction to its live cell set.
type MockChain struct {
	mu sync.Mutex

	cells   map[cell.OutPoint]*cell.LiveCell
	order   []cell.OutPoint
	txs     map[cell.Hash]*cell.Transaction
	scripts map[cell.Hash]MockScript

	secpDep cell.CellDep
	funded  uint32
}

func NewMockChain() *MockChain {
	m := &MockChain{
		cells:   make(map[cell.OutPoint]*cell.LiveCell),
		txs:     make(map[cell.Hash]*cell.Transaction),
		scripts: make(map[cell.Hash]MockScript),
	}

	// The secp256k1 dep group, owned by nobody.
	op := m.addGenesisCell(cell.CellOutput{
		Capacity: 100 * cell.ShannonsPerCKByte,
		Lock:     cell.Script{HashType: cell.HashTypeData},
	}, []byte("secp256k1_blake160_sighash_all"))
	m.secpDep = cell.CellDep{
		OutPoint: op,
		DepType:  cell.DepTypeDepGroup,
	}

	return m
}

func (m *MockChain) addGenesisCell(out cell.CellOutput,
	data []byte) cell.OutPoint {

	var seed [4]byte
	binary.LittleEndian.PutUint32(seed[:], m.funded)
	m.funded++

	op := cell.OutPoint{
		TxHash: cell.ContentHash(append([]byte("genesis"), seed[:]...)),
	}
	m.addCell(op, out, data)

	return op
}

func (m *MockChain) addCell(op cell.OutPoint, out cell.CellOutput,
	data []byte) {

	m.cells[op] = &cell.LiveCell{
		OutPoint:      op,
		Output:        out.Copy(),
		Data:          append([]byte(nil), data...),
		OutputDataLen: uint64(len(data)),
	}
	m.order = append(m.order, op)
}

// SecpDep returns the dep group the default lock needs.
func (m *MockChain) SecpDep() cell.CellDep {
	return m.secpDep
}

// Fund creates a plain capacity cell owned by lock.
func (m *MockChain) Fund(lock cell.Script, capacity uint64) cell.OutPoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.addGenesisCell(cell.CellOutput{
		Capacity: capacity,
		Lock:     lock,
	}, nil)
}

// RegisterScript runs validate for every type script with the given code
// hash.
func (m *MockChain) RegisterScript(codeHash cell.Hash, validate MockScript) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scripts[codeHash] = validate
}

// LiveCell returns the cell at op if it's live.
func (m *MockChain) LiveCell(op cell.OutPoint) (*cell.LiveCell, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cells[op]
	return c, ok
}

// Transaction returns an accepted transaction.
func (m *MockChain) Transaction(txHash cell.Hash) (*cell.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.txs[txHash]
	return tx, ok
}

// NumTransactions returns the number of accepted transactions.
func (m *MockChain) NumTransactions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.txs)
}

func (m *MockChain) ListUnspent(_ context.Context,
	lock cell.Script) ([]*cell.LiveCell, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	var live []*cell.LiveCell
	for _, op := range m.order {
		c, ok := m.cells[op]
		if !ok || !c.Output.Lock.Equal(lock) {
			continue
		}

		cp := *c
		cp.Output = c.Output.Copy()
		live = append(live, &cp)
	}

	return live, nil
}

func reject(code int64, format string, args ...interface{}) error {
	return chainrpc.NewLedgerRejection(&chainrpc.RPCError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

func scriptFailure(source string, exitCode int64) error {
	return reject(chainrpc.CodeTransactionFailedToVerify,
		"TransactionFailedToVerify: Verification failed Script("+
			"TransactionScriptError { source: %s, cause: "+
			"ValidationFailure: see error code %d })", source, exitCode)
}

func (m *MockChain) SendTransaction(_ context.Context,
	tx *cell.Transaction) (cell.Hash, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := tx.Validate(); err != nil {
		return cell.Hash{}, err
	}

	txHash := tx.Hash()
	if _, ok := m.txs[txHash]; ok {
		return cell.Hash{}, reject(
			chainrpc.CodePoolRejectedDuplicatedTransaction,
			"PoolRejectedDuplicatedTransaction: %v", txHash,
		)
	}

	// Resolve the inputs and the deps.
	seen := make(map[cell.OutPoint]struct{}, len(tx.Inputs))
	inputs := make([]*cell.LiveCell, 0, len(tx.Inputs))
	var inCapacity uint64
	for _, in := range tx.Inputs {
		op := in.PreviousOutput
		c, ok := m.cells[op]
		if _, dup := seen[op]; !ok || dup {
			return cell.Hash{}, reject(
				chainrpc.CodeTransactionFailedToResolve,
				"TransactionFailedToResolve: Resolve failed "+
					"Dead(OutPoint(%v))", op,
			)
		}
		seen[op] = struct{}{}
		inputs = append(inputs, c)

		var err error
		inCapacity, err = cell.Add(inCapacity, c.Output.Capacity)
		if err != nil {
			return cell.Hash{}, err
		}
	}
	if len(inputs) == 0 {
		return cell.Hash{}, reject(chainrpc.CodeTransactionFailedToVerify,
			"TransactionFailedToVerify: Verification failed "+
				"Transaction(Empty(Inputs))")
	}

	codeCells := make(map[cell.Hash]struct{})
	var haveSecp bool
	for _, dep := range tx.CellDeps {
		c, ok := m.cells[dep.OutPoint]
		if !ok {
			return cell.Hash{}, reject(
				chainrpc.CodeTransactionFailedToResolve,
				"TransactionFailedToResolve: Resolve failed "+
					"Unknown(OutPoint(%v))", dep.OutPoint,
			)
		}
		if dep == m.secpDep {
			haveSecp = true
		}
		if dep.DepType == cell.DepTypeCode {
			codeCells[cell.ContentHash(c.Data)] = struct{}{}
		}
	}

	// Capacity.
	var outCapacity uint64
	for i, out := range tx.Outputs {
		err := cell.CheckOutputCapacity(out, tx.OutputsData[i])
		if err != nil {
			return cell.Hash{}, reject(
				chainrpc.CodeTransactionFailedToVerify,
				"TransactionFailedToVerify: Verification "+
					"failed Transaction(InsufficientCell"+
					"Capacity(Outputs[%d]))", i,
			)
		}

		outCapacity, err = cell.Add(outCapacity, out.Capacity)
		if err != nil {
			return cell.Hash{}, err
		}
	}
	if outCapacity > inCapacity {
		return cell.Hash{}, reject(chainrpc.CodeTransactionFailedToVerify,
			"TransactionFailedToVerify: Verification failed "+
				"Transaction(OutputsSumOverflow(%d > %d))",
			outCapacity, inCapacity)
	}

	// Locks. Every input must be guarded by the same default lock.
	if !haveSecp {
		return cell.Hash{}, reject(chainrpc.CodeTransactionFailedToVerify,
			"TransactionFailedToVerify: Verification failed "+
				"Script(ScriptNotFound(%v))",
			udtscript.Secp256k1Blake160CodeHash)
	}
	lock := inputs[0].Output.Lock
	for i, in := range inputs {
		if !in.Output.Lock.Equal(lock) || !udtscript.IsDefaultLock(lock) {
			return cell.Hash{}, scriptFailure(
				fmt.Sprintf("Inputs[%d].Lock", i),
				MockCodeSignature,
			)
		}
	}
	if err := udtscript.VerifyTransaction(tx, lock.Args); err != nil {
		return cell.Hash{}, scriptFailure(
			"Inputs[0].Lock", MockCodeSignature,
		)
	}

	// Type scripts, each run once.
	type typeRef struct {
		script cell.Script
		source string
	}
	var typeScripts []typeRef
	ran := make(map[cell.Hash]struct{})
	collect := func(t *cell.Script, source string) {
		if t == nil {
			return
		}
		h := t.Hash()
		if _, ok := ran[h]; ok {
			return
		}
		ran[h] = struct{}{}
		typeScripts = append(typeScripts, typeRef{*t, source})
	}
	for i, in := range inputs {
		collect(in.Output.Type, fmt.Sprintf("Inputs[%d].Type", i))
	}
	for i, out := range tx.Outputs {
		collect(out.Type, fmt.Sprintf("Outputs[%d].Type", i))
	}
	for _, ref := range typeScripts {
		if ref.script.HashType != cell.HashTypeType {
			_, ok := codeCells[ref.script.CodeHash]
			if !ok {
				return cell.Hash{}, reject(
					chainrpc.CodeTransactionFailedToVerify,
					"TransactionFailedToVerify: "+
						"Verification failed Script("+
						"ScriptNotFound(%v))",
					ref.script.CodeHash,
				)
			}
		}

		validate, ok := m.scripts[ref.script.CodeHash]
		if !ok {
			continue
		}
		if code := validate(tx, inputs, ref.script); code != 0 {
			return cell.Hash{}, scriptFailure(ref.source, code)
		}
	}

	// Apply.
	for _, in := range tx.Inputs {
		delete(m.cells, in.PreviousOutput)
	}
	for i, out := range tx.Outputs {
		m.addCell(cell.OutPoint{
			TxHash: txHash,
			Index:  uint32(i),
		}, out, tx.OutputsData[i])
	}
	m.txs[txHash] = tx.Copy()

	return txHash, nil
}

// MockUDTScript checks UDT cells. The type args are the multi hash of the
// governance lock hash; if an input is guarded by that lock the transaction
// may mint freely, otherwise the token outputs may not exceed the token
// inputs.
func MockUDTScript(tx *cell.Transaction, inputs []*cell.LiveCell,
	script cell.Script) int64 {

	if len(script.Args) != cell.HashSize {
		return MockCodeArgsLength
	}

	for _, in := range inputs {
		owner := cell.MultiHash(in.Output.Lock.Hash().Bytes())
		if owner == cell.Hash(script.Args) {
			return 0
		}
	}

	var inAmount, outAmount uint64
	for _, in := range inputs {
		if in.Output.Type == nil || !in.Output.Type.Equal(script) {
			continue
		}
		amount, err := cell.DecodeUDTData(in.Data)
		if err != nil || !amount.IsUint64() {
			return MockCodeEncoding
		}
		inAmount += amount.Uint64()
	}
	for i, out := range tx.Outputs {
		if out.Type == nil || !out.Type.Equal(script) {
			continue
		}
		amount, err := cell.DecodeUDTData(tx.OutputsData[i])
		if err != nil || !amount.IsUint64() {
			return MockCodeEncoding
		}
		outAmount += amount.Uint64()
	}

	if outAmount > inAmount {
		return MockCodeAmount
	}

	return 0
}

// MockTypeIDScript checks type-id cells: at most one cell of the type may be
// consumed and created, and a newly minted cell's args must be derived from
// the first input of the minting transaction.
func MockTypeIDScript(tx *cell.Transaction, inputs []*cell.LiveCell,
	script cell.Script) int64 {

	if len(script.Args) != cell.HashSize {
		return MockCodeArgsLength
	}

	var numIn, numOut int
	for _, in := range inputs {
		if in.Output.Type != nil && in.Output.Type.Equal(script) {
			numIn++
		}
	}
	for _, out := range tx.Outputs {
		if out.Type != nil && out.Type.Equal(script) {
			numOut++
		}
	}
	if numIn > 1 || numOut > 1 {
		return MockCodeTypeIDInvalid
	}

	if numIn == 0 {
		want := cell.TypeIDArgs(tx.Inputs[0].PreviousOutput)
		if cell.Hash(script.Args) != cell.Hash(want) {
			return MockCodeTypeIDInvalid
		}
	}

	return 0
}
