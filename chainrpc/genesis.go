package chainrpc

import (
	"context"
	"fmt"

	"github.com/cellforge/udtforge/cell"
)

// SecpDep describes where the default lock's code lives on a chain.
type SecpDep struct {
	// CellDep is the dep group holding the secp256k1 code and its data.
	CellDep cell.CellDep

	// CodeHash is the type hash of the secp256k1 code cell.
	CodeHash cell.Hash

	// HashType is always HashTypeType.
	HashType cell.HashType
}

// GenesisDeps reads the secp256k1 dep group out of the genesis block: the
// code hash is the type hash of the second output of the first genesis
// transaction, and the dep group is the first output of the second one.
func (c *Client) GenesisDeps(ctx context.Context) (*SecpDep, error) {
	genesis, err := c.BlockByNumber(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch genesis block: %w", err)
	}

	return SecpDepFromGenesis(genesis)
}

// SecpDepFromGenesis extracts the secp256k1 dep from a genesis block.
func SecpDepFromGenesis(genesis *Block) (*SecpDep, error) {
	if len(genesis.Transactions) < 2 {
		return nil, fmt.Errorf("genesis block has %d transactions, "+
			"need 2", len(genesis.Transactions))
	}

	cellbase := genesis.Transactions[0]
	if len(cellbase.Outputs) < 2 || cellbase.Outputs[1].Type == nil {
		return nil, fmt.Errorf("genesis cellbase has no secp256k1 " +
			"code cell")
	}
	codeType, err := cellbase.Outputs[1].Type.ToCell()
	if err != nil {
		return nil, err
	}

	depGroupTx := genesis.Transactions[1]
	if depGroupTx.Hash == nil {
		return nil, fmt.Errorf("genesis dep group tx has no hash")
	}

	return &SecpDep{
		CellDep: cell.CellDep{
			OutPoint: cell.OutPoint{
				TxHash: cell.Hash(*depGroupTx.Hash),
				Index:  0,
			},
			DepType: cell.DepTypeDepGroup,
		},
		CodeHash: codeType.Hash(),
		HashType: cell.HashTypeType,
	}, nil
}
