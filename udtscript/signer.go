package udtscript

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/cellforge/udtforge/cell"
)

const (
	// compactSigMagicOffset is the header offset of btcec's compact
	// signatures for compressed keys: 27 plus 4.
	compactSigMagicOffset = 27 + 4
)

var (
	// ErrNoInputs is returned when signing a transaction that spends
	// nothing.
	ErrNoInputs = errors.New("transaction has no inputs to sign")

	// ErrBadSignature is returned when a witness doesn't carry a valid
	// signature of the expected key.
	ErrBadSignature = errors.New("invalid transaction signature")
)

// Key is a secp256k1 private key that owns cells locked by the default
// lock.
type Key struct {
	priv *btcec.PrivateKey
}

// NewKeyFromBytes returns the key for the 32-byte private scalar.
func NewKeyFromBytes(b []byte) (*Key, error) {
	if len(b) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("private key must be %d bytes, got %d",
			btcec.PrivKeyBytesLen, len(b))
	}

	priv, _ := btcec.PrivKeyFromBytes(b)
	if priv.Key.IsZero() {
		return nil, fmt.Errorf("private key is zero")
	}

	return &Key{priv: priv}, nil
}

// NewKeyFromHex parses a 0x prefixed (or bare) hex private key.
func NewKeyFromHex(s string) (*Key, error) {
	b, err := cell.DecodeHex(s)
	if err != nil {
		return nil, err
	}

	return NewKeyFromBytes(b)
}

// PubKey returns the public half of the key.
func (k *Key) PubKey() *btcec.PublicKey {
	return k.priv.PubKey()
}

// LockArgs returns the blake160 lock args owned by the key.
func (k *Key) LockArgs() []byte {
	return LockArgs(k.PubKey())
}

// LockScript returns the default lock owned by the key.
func (k *Key) LockScript() cell.Script {
	return LockScriptForPubKey(k.PubKey())
}

// Address returns the full address of the key's default lock.
func (k *Key) Address(net Network) (string, error) {
	return EncodeFullAddress(k.LockScript(), net)
}

// SignTransaction signs every input of the transaction with the key,
// assuming all inputs belong to the key's lock and so form a single script
// group. The signature goes into the lock field of the first witness. The
// passed transaction is not modified.
func (k *Key) SignTransaction(tx *cell.Transaction) (*cell.Transaction,
	error) {

	if len(tx.Inputs) == 0 {
		return nil, ErrNoInputs
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	signed := tx.Copy()

	first, err := firstWitness(signed)
	if err != nil {
		return nil, err
	}

	msg, err := SighashAllMessage(signed)
	if err != nil {
		return nil, err
	}

	compact, err := ecdsa.SignCompact(k.priv, msg[:], true)
	if err != nil {
		return nil, fmt.Errorf("unable to sign: %w", err)
	}

	first.Lock = compactToRecoverable(compact)
	signed.Witnesses[0] = first.Serialize()

	log.Debugf("Signed tx %v with %d inputs", signed.Hash(),
		len(signed.Inputs))

	return signed, nil
}

// firstWitness decodes the first witness of the transaction, treating an
// empty witness as empty WitnessArgs.
func firstWitness(tx *cell.Transaction) (cell.WitnessArgs, error) {
	if len(tx.Witnesses) == 0 || len(tx.Witnesses[0]) == 0 {
		return cell.WitnessArgs{}, nil
	}

	w, err := cell.DecodeWitnessArgs(tx.Witnesses[0])
	if err != nil {
		return cell.WitnessArgs{}, fmt.Errorf("first witness: %w", err)
	}

	return w, nil
}

// SighashAllMessage computes the message signed by the default lock: the
// ckb-hash of the transaction hash, the first witness with its lock zeroed
// to a 65-byte placeholder, and every other witness, each prefixed with its
// length as a little endian uint64.
func SighashAllMessage(tx *cell.Transaction) (cell.Hash, error) {
	if len(tx.Witnesses) == 0 {
		return cell.Hash{}, fmt.Errorf("%w: no witnesses",
			cell.ErrSchemaViolation)
	}

	first, err := firstWitness(tx)
	if err != nil {
		return cell.Hash{}, err
	}
	first.Lock = make([]byte, SignatureSize)

	hasher := cell.NewContentHasher()
	txHash := tx.Hash()
	_, _ = hasher.Write(txHash[:])

	writeWitness(hasher, first.Serialize())
	for _, witness := range tx.Witnesses[1:] {
		writeWitness(hasher, witness)
	}

	var msg cell.Hash
	copy(msg[:], hasher.Sum(nil))

	return msg, nil
}

func writeWitness(h hash.Hash, witness []byte) {
	var length [8]byte
	binary.LittleEndian.PutUint64(length[:], uint64(len(witness)))

	_, _ = h.Write(length[:])
	_, _ = h.Write(witness)
}

// compactToRecoverable turns btcec's header || r || s layout into the
// r || s || recovery id layout.
func compactToRecoverable(compact []byte) []byte {
	sig := make([]byte, SignatureSize)
	copy(sig, compact[1:])
	sig[SignatureSize-1] = compact[0] - compactSigMagicOffset

	return sig
}

// RecoverSigner returns the public key that signed the transaction, read
// from the lock field of its first witness.
func RecoverSigner(tx *cell.Transaction) (*btcec.PublicKey, error) {
	if len(tx.Witnesses) == 0 {
		return nil, fmt.Errorf("%w: no witnesses", ErrBadSignature)
	}

	first, err := firstWitness(tx)
	if err != nil {
		return nil, err
	}
	if len(first.Lock) != SignatureSize {
		return nil, fmt.Errorf("%w: lock field is %d bytes",
			ErrBadSignature, len(first.Lock))
	}

	msg, err := SighashAllMessage(tx)
	if err != nil {
		return nil, err
	}

	compact := make([]byte, SignatureSize)
	compact[0] = first.Lock[SignatureSize-1] + compactSigMagicOffset
	copy(compact[1:], first.Lock[:SignatureSize-1])

	pub, _, err := ecdsa.RecoverCompact(compact, msg[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	return pub, nil
}

// VerifyTransaction checks that the transaction was signed by the owner of
// the given lock args.
func VerifyTransaction(tx *cell.Transaction, lockArgs []byte) error {
	pub, err := RecoverSigner(tx)
	if err != nil {
		return err
	}

	if !bytes.Equal(LockArgs(pub), lockArgs) {
		return fmt.Errorf("%w: signed by %x, want %x", ErrBadSignature,
			LockArgs(pub), lockArgs)
	}

	return nil
}
