package udtwallet

import (
	"context"
	"fmt"

	"github.com/cellforge/udtforge/cell"
)

// Wallet is the submission boundary: it signs finalized drafts with the
// configured key and hands them to the chain.
type Wallet struct {
	chain  ChainBridge
	signer Signer
}

// NewWallet returns a new Wallet.
func NewWallet(chain ChainBridge, signer Signer) *Wallet {
	return &Wallet{
		chain:  chain,
		signer: signer,
	}
}

// LockScript returns the lock of the cells the wallet spends.
func (w *Wallet) LockScript() cell.Script {
	return w.signer.LockScript()
}

// SignAndSubmit finalizes, signs and submits the draft. It returns the hash
// of the accepted transaction and the reserved set extended with every
// input the transaction consumed, as the chain may keep reporting those as
// live until the transaction commits.
func (w *Wallet) SignAndSubmit(ctx context.Context, draft *Draft,
	reserved ReservedSet) (cell.Hash, ReservedSet, error) {

	tx, err := draft.Finalize()
	if err != nil {
		return cell.Hash{}, reserved, err
	}

	signed, err := w.signer.SignTransaction(tx)
	if err != nil {
		return cell.Hash{}, reserved, fmt.Errorf("unable to sign "+
			"transaction: %w", err)
	}

	txHash, err := w.chain.SendTransaction(ctx, signed)
	if err != nil {
		return cell.Hash{}, reserved, fmt.Errorf("unable to send "+
			"transaction %v: %w", signed.Hash(), err)
	}

	if localHash := signed.Hash(); txHash != localHash {
		log.Warnf("Chain returned tx hash %v, computed %v", txHash,
			localHash)
	}

	log.Infof("Submitted tx %v spending %d inputs, creating %d outputs",
		txHash, len(signed.Inputs), len(signed.Outputs))

	return txHash, reserved.With(signed.Inputs...), nil
}
