package udtscript

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/cellforge/udtforge/cell"
	"github.com/stretchr/testify/require"
)

var (
	vectorArgs, _ = cell.DecodeHex(
		"0xb39bbc0b3673c7d36450bc14cfcdad2d559c6c64",
	)

	vectorShort = "ckb1qyqt8xaupvm8837nv3gtc9x0ekkj64vud3jqfwyw5v"

	vectorFull = "ckb1qzda0cr08m85hc8jlnfp3zer7xulejywt49kt2rr0vthywaa" +
		"50xwsqdnnw7qkdnnclfkg59uzn8umtfd2kwxceqxwquc4"
)

// TestAddressVectors checks encoding and decoding against the published
// address format vectors.
func TestAddressVectors(t *testing.T) {
	t.Parallel()

	lock := DefaultLockScript(vectorArgs)

	short, err := EncodeShortAddress(lock, Mainnet)
	require.NoError(t, err)
	require.Equal(t, vectorShort, short)

	full, err := EncodeFullAddress(lock, Mainnet)
	require.NoError(t, err)
	require.Equal(t, vectorFull, full)

	for _, addr := range []string{vectorShort, vectorFull} {
		script, net, err := DecodeAddress(addr)
		require.NoError(t, err)
		require.Equal(t, Mainnet, net)
		require.True(t, lock.Equal(script))
	}
}

// TestAddressRoundTrip round trips arbitrary scripts through full testnet
// addresses.
func TestAddressRoundTrip(t *testing.T) {
	t.Parallel()

	scripts := []cell.Script{
		DefaultLockScript(make([]byte, LockArgsSize)),
		{
			CodeHash: cell.ContentHash([]byte("code")),
			HashType: cell.HashTypeData1,
		},
		{
			CodeHash: cell.ContentHash([]byte("code")),
			HashType: cell.HashTypeData,
			Args:     make([]byte, 100),
		},
	}
	for _, script := range scripts {
		addr, err := EncodeFullAddress(script, Testnet)
		require.NoError(t, err)
		require.Equal(t, "ckt1", addr[:4])

		decoded, net, err := DecodeAddress(addr)
		require.NoError(t, err)
		require.Equal(t, Testnet, net)
		require.True(t, script.Equal(decoded))
	}
}

// TestAddressRejects checks the failure modes of the address codec.
func TestAddressRejects(t *testing.T) {
	t.Parallel()

	_, err := EncodeShortAddress(cell.Script{}, Mainnet)
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, _, err = DecodeAddress("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4")
	require.ErrorIs(t, err, ErrInvalidAddress)

	// Flip the last character to break the checksum.
	broken := vectorShort[:len(vectorShort)-1] + "q"
	_, _, err = DecodeAddress(broken)
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = ParseNetwork("regtest")
	require.Error(t, err)

	net, err := ParseNetwork("ckt")
	require.NoError(t, err)
	require.Equal(t, Testnet, net)
}

// TestDecodeFullWithoutHashType rejects full payloads that skip the hash
// type byte, whether that leaves the payload short or shifts the args.
func TestDecodeFullWithoutHashType(t *testing.T) {
	t.Parallel()

	lock := DefaultLockScript(vectorArgs)

	payloads := map[string][]byte{
		"code hash only": append([]byte{formatFull}, lock.CodeHash[:]...),
		"args in place of hash type": append(
			append([]byte{formatFull}, lock.CodeHash[:]...),
			vectorArgs...,
		),
	}
	for name, payload := range payloads {
		payload := payload
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			converted, err := bech32.ConvertBits(payload, 8, 5, true)
			require.NoError(t, err)

			addr, err := bech32.EncodeM(MainnetHRP, converted)
			require.NoError(t, err)

			_, _, err = DecodeAddress(addr)
			require.ErrorIs(t, err, ErrInvalidAddress)
		})
	}
}
