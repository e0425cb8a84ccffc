package cell

import (
	"bytes"
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestContentHashEmpty checks the ckb-hash of the empty input against the
// well known value.
func TestContentHashEmpty(t *testing.T) {
	t.Parallel()

	const emptyHash = "0x44f4c69744d5f8c55d642062949dcae49bc4e7ef43d388" +
		"c5a12f42b5633d163e"

	require.Equal(t, emptyHash, ContentHash(nil).String())
	require.Equal(t, emptyHash, ContentHash([]byte{}).String())
}

// TestContentHashStreaming makes sure the streaming hasher and the one shot
// helper agree.
func TestContentHashStreaming(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte{0xab}, 300)

	h := NewContentHasher()
	_, _ = h.Write(data[:100])
	_, _ = h.Write(data[100:])

	require.Equal(t, ContentHash(data).Bytes(), h.Sum(nil))
}

// TestMultiHash checks that MultiHash is plain blake2b over the
// concatenation, distinct from the personalized ckb-hash.
func TestMultiHash(t *testing.T) {
	t.Parallel()

	a := []byte("governance")
	b := []byte("lock hash")

	joined := MultiHash(append(append([]byte{}, a...), b...))
	require.Equal(t, joined, MultiHash(a, b))
	require.NotEqual(t, ContentHash(append(a, b...)), joined)

	fromHex, err := MultiHashHex(
		"0x"+hex.EncodeToString(a), hex.EncodeToString(b),
	)
	require.NoError(t, err)
	require.Equal(t, joined, fromHex)

	_, err = MultiHashHex("0xzz")
	require.ErrorIs(t, err, ErrInvalidHex)
}

func baseScript() Script {
	codeHash, _ := HashFromHex(
		"0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8",
	)

	return Script{
		CodeHash: codeHash,
		HashType: HashTypeType,
		Args: []byte{
			0x36, 0xc3, 0x29, 0xed, 0x63, 0x0d, 0x6c, 0xe7, 0x50,
			0x71, 0x2a, 0x47, 0x75, 0x43, 0x67, 0x2a, 0xda, 0xb5,
			0x7f, 0x4c,
		},
	}
}

// TestScriptHashDeterministic checks that equal scripts hash equally, no
// matter how they were built.
func TestScriptHashDeterministic(t *testing.T) {
	t.Parallel()

	s := baseScript()
	require.Equal(t, s.Hash(), s.Copy().Hash())
	require.Equal(t, s.Hash(), ScriptHash(s))

	decoded, err := DecodeScript(s.Serialize())
	require.NoError(t, err)
	require.True(t, s.Equal(decoded))
	require.Equal(t, s.Hash(), decoded.Hash())
}

// TestScriptHashBitMutation flips every single bit of every field of a fixed
// script and checks that the hash changes each time.
func TestScriptHashBitMutation(t *testing.T) {
	t.Parallel()

	base := baseScript()
	baseHash := base.Hash()

	for i := 0; i < HashSize*8; i++ {
		s := base.Copy()
		s.CodeHash[i/8] ^= 1 << (i % 8)
		require.NotEqual(t, baseHash, s.Hash(), "code hash bit %d", i)
	}

	for i := 0; i < 8; i++ {
		s := base.Copy()
		s.HashType ^= 1 << i
		require.NotEqual(t, baseHash, s.Hash(), "hash type bit %d", i)
	}

	for i := 0; i < len(base.Args)*8; i++ {
		s := base.Copy()
		s.Args[i/8] ^= 1 << (i % 8)
		require.NotEqual(t, baseHash, s.Hash(), "args bit %d", i)
	}

	// Changing the length of the args must change the hash too.
	s := base.Copy()
	s.Args = append(s.Args, 0)
	require.NotEqual(t, baseHash, s.Hash())
}

// TestTypeIDArgsUnique checks that distinct consumed out points always give
// distinct type-id args.
func TestTypeIDArgsUnique(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))

	const numPoints = 500
	seen := make(map[string]OutPoint, numPoints)
	for len(seen) < numPoints {
		var op OutPoint
		_, _ = rng.Read(op.TxHash[:])
		op.Index = uint32(rng.Intn(8))

		args := TypeIDArgs(op)
		require.Len(t, args, HashSize)

		if prev, ok := seen[string(args)]; ok {
			require.Equal(t, prev, op, "type id collision")
			continue
		}
		seen[string(args)] = op
	}

	// Out points that only differ in their index must differ as well.
	var op OutPoint
	first := TypeIDArgs(op)
	op.Index = 1
	require.NotEqual(t, first, TypeIDArgs(op))
}

// TestTypeIDRecordLayout checks the record is laid out like an out point.
func TestTypeIDRecordLayout(t *testing.T) {
	t.Parallel()

	op := OutPoint{Index: 0x01020304}
	op.TxHash[0] = 0xff

	record := TypeIDRecord{TxHash: op.TxHash, Index: op.Index}
	require.Equal(t, op.Serialize(), record.Serialize())

	decoded, err := DecodeTypeIDRecord(record.Serialize())
	require.NoError(t, err)
	require.Equal(t, record, decoded)

	_, err = DecodeTypeIDRecord(record.Serialize()[1:])
	require.ErrorIs(t, err, ErrSchemaViolation)
}
