package udtscript

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/cellforge/udtforge/cell"
)

// Network selects the human readable prefix of an address.
type Network uint8

const (
	// Mainnet addresses use the "ckb" prefix.
	Mainnet Network = iota

	// Testnet addresses use the "ckt" prefix. Dev chains use testnet
	// addresses too.
	Testnet
)

const (
	// MainnetHRP is the human readable part of mainnet addresses.
	MainnetHRP = "ckb"

	// TestnetHRP is the human readable part of testnet addresses.
	TestnetHRP = "ckt"

	// formatFull is the payload format byte of full addresses, which
	// carry the whole script.
	formatFull byte = 0x00

	// formatShort is the payload format byte of the deprecated short
	// addresses, which only carry the args of a well known lock.
	formatShort byte = 0x01

	// codeHashIndexDefault is the short address code hash index of the
	// default secp256k1 blake160 lock.
	codeHashIndexDefault byte = 0x00
)

var (
	// ErrInvalidAddress is returned when an address can't be decoded.
	ErrInvalidAddress = errors.New("invalid address")
)

// HRP returns the human readable part used by the network.
func (n Network) HRP() string {
	if n == Mainnet {
		return MainnetHRP
	}

	return TestnetHRP
}

// String returns the name of the network.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"

	case Testnet:
		return "testnet"

	default:
		return fmt.Sprintf("UnknownNetwork(%d)", uint8(n))
	}
}

// ParseNetwork maps a network name onto its Network.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(s) {
	case "mainnet", MainnetHRP:
		return Mainnet, nil

	case "testnet", "devnet", TestnetHRP:
		return Testnet, nil

	default:
		return 0, fmt.Errorf("unknown network: %v", s)
	}
}

// EncodeFullAddress encodes the script as a bech32m full address.
func EncodeFullAddress(script cell.Script, net Network) (string, error) {
	payload := make([]byte, 0, 2+cell.HashSize+len(script.Args))
	payload = append(payload, formatFull)
	payload = append(payload, script.CodeHash[:]...)
	payload = append(payload, byte(script.HashType))
	payload = append(payload, script.Args...)

	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}

	return bech32.EncodeM(net.HRP(), converted)
}

// EncodeShortAddress encodes a default lock as a legacy bech32 short
// address.
func EncodeShortAddress(script cell.Script, net Network) (string, error) {
	if !IsDefaultLock(script) {
		return "", fmt.Errorf("%w: short addresses only encode the "+
			"default lock", ErrInvalidAddress)
	}

	payload := make([]byte, 0, 2+LockArgsSize)
	payload = append(payload, formatShort, codeHashIndexDefault)
	payload = append(payload, script.Args...)

	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}

	return bech32.Encode(net.HRP(), converted)
}

// DecodeAddress parses a full or short address into the lock script it
// encodes and the network it belongs to.
func DecodeAddress(addr string) (cell.Script, Network, error) {
	hrp, data, err := bech32.DecodeNoLimit(addr)
	if err != nil {
		return cell.Script{}, 0, fmt.Errorf("%w: %v", ErrInvalidAddress,
			err)
	}

	var net Network
	switch hrp {
	case MainnetHRP:
		net = Mainnet

	case TestnetHRP:
		net = Testnet

	default:
		return cell.Script{}, 0, fmt.Errorf("%w: unknown prefix %v",
			ErrInvalidAddress, hrp)
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return cell.Script{}, 0, fmt.Errorf("%w: %v", ErrInvalidAddress,
			err)
	}
	if len(payload) == 0 {
		return cell.Script{}, 0, fmt.Errorf("%w: empty payload",
			ErrInvalidAddress)
	}

	switch payload[0] {
	case formatFull:
		if len(payload) < 2+cell.HashSize {
			return cell.Script{}, 0, fmt.Errorf("%w: full payload "+
				"too short", ErrInvalidAddress)
		}

		var script cell.Script
		copy(script.CodeHash[:], payload[1:1+cell.HashSize])
		script.HashType = cell.HashType(payload[1+cell.HashSize])
		switch script.HashType {
		case cell.HashTypeData, cell.HashTypeType, cell.HashTypeData1:
		default:
			return cell.Script{}, 0, fmt.Errorf("%w: unknown hash "+
				"type %#x", ErrInvalidAddress,
				uint8(script.HashType))
		}
		script.Args = append(
			[]byte{}, payload[2+cell.HashSize:]...,
		)

		return script, net, nil

	case formatShort:
		if len(payload) != 2+LockArgsSize ||
			payload[1] != codeHashIndexDefault {

			return cell.Script{}, 0, fmt.Errorf("%w: unsupported "+
				"short payload", ErrInvalidAddress)
		}

		return DefaultLockScript(payload[2:]), net, nil

	default:
		return cell.Script{}, 0, fmt.Errorf("%w: unknown format %#x",
			ErrInvalidAddress, payload[0])
	}
}
