package udtscript

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/cellforge/udtforge/cell"
)

const (
	// LockArgsSize is the size of the args of a default lock: the blake160
	// of the owner's compressed public key.
	LockArgsSize = 20

	// SignatureSize is the size of a recoverable secp256k1 signature in
	// the r || s || recovery id layout the default lock expects.
	SignatureSize = 65
)

// Secp256k1Blake160CodeHash is the type hash of the default secp256k1
// blake160 sighash-all lock, which is the same on every public network.
var Secp256k1Blake160CodeHash = cell.Hash{
	0x9b, 0xd7, 0xe0, 0x6f, 0x3e, 0xcf, 0x4b, 0xe0,
	0xf2, 0xfc, 0xd2, 0x18, 0x8b, 0x23, 0xf1, 0xb9,
	0xfc, 0xc8, 0x8e, 0x5d, 0x4b, 0x65, 0xa8, 0x63,
	0x7b, 0x17, 0x72, 0x3b, 0xbd, 0xa3, 0xcc, 0xe8,
}

// DefaultLockScript returns the default lock for the given blake160 args.
func DefaultLockScript(args []byte) cell.Script {
	return cell.Script{
		CodeHash: Secp256k1Blake160CodeHash,
		HashType: cell.HashTypeType,
		Args:     append([]byte(nil), args...),
	}
}

// LockArgs returns the blake160 of the compressed public key.
func LockArgs(pub *btcec.PublicKey) []byte {
	return cell.Blake160(pub.SerializeCompressed())
}

// LockScriptForPubKey returns the default lock owned by pub.
func LockScriptForPubKey(pub *btcec.PublicKey) cell.Script {
	return DefaultLockScript(LockArgs(pub))
}

// IsDefaultLock returns true if the script is a default lock with well
// formed args.
func IsDefaultLock(s cell.Script) bool {
	return s.CodeHash == Secp256k1Blake160CodeHash &&
		s.HashType == cell.HashTypeType && len(s.Args) == LockArgsSize
}
