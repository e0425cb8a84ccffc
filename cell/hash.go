package cell

import (
	"fmt"
	"hash"

	"github.com/minio/blake2b-simd"
)

// ckbHashPersonalization is the blake2b personalization of the ledger's
// default hash function.
var ckbHashPersonalization = []byte("ckb-default-hash")

// newHasher returns a 32-byte blake2b hasher with the given personalization.
// A nil personalization gives the plain, unkeyed blake2b-256.
func newHasher(person []byte) hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size:   HashSize,
		Person: person,
	})
	if err != nil {
		// Only an invalid static config can fail here.
		panic(fmt.Sprintf("unable to create blake2b hasher: %v", err))
	}

	return h
}

// NewContentHasher returns a streaming ckb-hash hasher. The digest it
// produces always equals ContentHash over the same bytes.
func NewContentHasher() hash.Hash {
	return newHasher(ckbHashPersonalization)
}

// ContentHash is the ledger's ckb-hash: blake2b-256 personalized with
// "ckb-default-hash". It identifies deployed code (the data hash), scripts
// and transactions.
func ContentHash(data []byte) Hash {
	h := NewContentHasher()
	_, _ = h.Write(data)

	var digest Hash
	copy(digest[:], h.Sum(nil))

	return digest
}

// ScriptHash returns the content addressed hash of a script. It's the hash of
// the serialized (code_hash, hash_type, args) table.
func ScriptHash(s Script) Hash {
	return s.Hash()
}

// MultiHash streams the concatenation of blobs through an unkeyed,
// unpersonalized blake2b-256. It's used to derive compound identities that
// on-chain scripts re-derive from the same ordered inputs.
func MultiHash(blobs ...[]byte) Hash {
	h := newHasher(nil)
	for _, blob := range blobs {
		_, _ = h.Write(blob)
	}

	var digest Hash
	copy(digest[:], h.Sum(nil))

	return digest
}

// MultiHashHex is MultiHash over hex encoded blobs.
func MultiHashHex(hexBlobs ...string) (Hash, error) {
	blobs := make([][]byte, len(hexBlobs))
	for i, hexBlob := range hexBlobs {
		blob, err := DecodeHex(hexBlob)
		if err != nil {
			return ZeroHash, fmt.Errorf("blob %d: %w", i, err)
		}
		blobs[i] = blob
	}

	return MultiHash(blobs...), nil
}

// Blake160 returns the first 20 bytes of the ckb-hash of data. Lock args of
// the default lock are the blake160 of the compressed public key.
func Blake160(data []byte) []byte {
	digest := ContentHash(data)
	return digest[:20]
}
