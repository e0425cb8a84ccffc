package commands

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/udtgarden"
	"github.com/cellforge/udtforge/udtscript"
	"github.com/cellforge/udtforge/udtwallet"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

// TestCommandNamesUnique ensures that no two commands at the same level
// share a name.
func TestCommandNamesUnique(t *testing.T) {
	app := NewApp()

	var checkLevel func(commands []cli.Command, groupPath string)
	checkLevel = func(commands []cli.Command, groupPath string) {
		names := make(map[string]int)
		for _, cmd := range commands {
			names[cmd.Name]++
		}

		for name, count := range names {
			require.Equal(t, 1, count, "duplicate command %q at "+
				"level '%s'", name, groupPath)
		}

		for _, cmd := range commands {
			if len(cmd.Subcommands) == 0 {
				continue
			}

			checkLevel(
				cmd.Subcommands,
				strings.TrimSpace(groupPath+" "+cmd.Name),
			)
		}
	}

	checkLevel(app.Commands, "")
}

// TestConfigArgs runs the app with a capturing command and checks the
// global flags are turned into config options.
func TestConfigArgs(t *testing.T) {
	var got []string
	app := NewApp()
	app.Commands = []cli.Command{{
		Name: "capture",
		Action: func(c *cli.Context) error {
			got = configArgs(c)
			return nil
		},
	}}

	err := app.Run([]string{
		"udtcli", "--udtforgedir=/tmp/udt", "-d", "trace",
		"--set=chain.nodeurl=http://10.0.0.1:8114",
		"--set=--fee=5000", "capture",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		traceErrors = false
	})

	require.True(t, traceErrors)
	require.Equal(t, []string{
		"--udtforgedir=/tmp/udt",
		"--debuglevel=trace",
		"--chain.nodeurl=http://10.0.0.1:8114",
		"--fee=5000",
	}, got)
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	maxU128 := new(big.Int).Sub(
		new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1),
	)

	testCases := []struct {
		name   string
		amount string
		want   *big.Int
		err    error
	}{{
		name:   "plain",
		amount: "1000",
		want:   big.NewInt(1000),
	}, {
		name:   "max",
		amount: maxU128.String(),
		want:   maxU128,
	}, {
		name:   "too large",
		amount: new(big.Int).Add(maxU128, big.NewInt(1)).String(),
		err:    cell.ErrAmountOutOfRange,
	}, {
		name:   "negative",
		amount: "-1",
		err:    cell.ErrAmountOutOfRange,
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			amount, err := parseAmount(tc.amount)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			require.Zero(t, tc.want.Cmp(amount))
		})
	}

	_, err := parseAmount("ten")
	require.ErrorContains(t, err, "invalid amount")
}

func testKey(t *testing.T, seed byte) *udtscript.Key {
	key, err := udtscript.NewKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	require.NoError(t, err)

	return key
}

func TestParseRecipient(t *testing.T) {
	t.Parallel()

	own := testKey(t, 1).LockScript()
	other := testKey(t, 2).LockScript()

	recipient, err := parseRecipient("", own)
	require.NoError(t, err)
	require.True(t, recipient.Equal(own))

	addr, err := udtscript.EncodeFullAddress(other, udtscript.Testnet)
	require.NoError(t, err)

	recipient, err = parseRecipient(addr, own)
	require.NoError(t, err)
	require.True(t, recipient.Equal(other))

	_, err = parseRecipient("ckt1nope", own)
	require.Error(t, err)
}

func TestPickUDTCell(t *testing.T) {
	t.Parallel()

	own := testKey(t, 1).LockScript()
	other := testKey(t, 2).LockScript()

	issued := &udtgarden.UDTCell{
		Input: cell.NewCellInput(cell.Hash{1}, 0),
		Lock:  own,
	}
	sent := &udtgarden.UDTCell{
		Input: cell.NewCellInput(cell.Hash{2}, 0),
		Lock:  other,
	}

	_, err := pickUDTCell(nil, "", own)
	require.ErrorContains(t, err, "no cells")

	udt, err := pickUDTCell([]*udtgarden.UDTCell{issued}, "", own)
	require.NoError(t, err)
	require.Equal(t, issued, udt)

	cells := []*udtgarden.UDTCell{issued, sent}
	_, err = pickUDTCell(cells, "", own)
	require.ErrorIs(t, err, udtgarden.ErrForeignLock)

	udt, err = pickUDTCell(
		cells, issued.Input.PreviousOutput.String(), own,
	)
	require.NoError(t, err)
	require.Equal(t, issued, udt)

	_, err = pickUDTCell(cells, "0x00:7", own)
	require.ErrorContains(t, err, "not in the journal")
}

func TestNewReservedResp(t *testing.T) {
	t.Parallel()

	require.Empty(t, newReservedResp(udtwallet.NewReservedSet()))

	first := cell.NewCellInput(cell.Hash{2}, 1)
	second := cell.NewCellInput(cell.Hash{1}, 3)
	resp := newReservedResp(udtwallet.NewReservedSet(first, second))
	require.Equal(t, []string{
		second.PreviousOutput.String(),
		first.PreviousOutput.String(),
	}, resp)
}

func TestNewAddressResp(t *testing.T) {
	t.Parallel()

	lock := testKey(t, 1).LockScript()
	resp, err := newAddressResp(lock, udtscript.Mainnet)
	require.NoError(t, err)
	require.Equal(t, "mainnet", resp.Network)
	require.True(t, strings.HasPrefix(resp.ShortAddress, "ckb1"))
	require.True(t, strings.HasPrefix(resp.FullAddress, "ckb1"))
	require.Equal(t, lock.Hash().String(), resp.LockHash)

	for _, addr := range []string{resp.ShortAddress, resp.FullAddress} {
		decoded, net, err := udtscript.DecodeAddress(addr)
		require.NoError(t, err)
		require.Equal(t, udtscript.Mainnet, net)
		require.True(t, decoded.Equal(lock))
	}
}
