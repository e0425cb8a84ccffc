package commands

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/udtgarden"
	"github.com/cellforge/udtforge/udtscript"
	"github.com/cellforge/udtforge/udtwallet"
	"github.com/urfave/cli"
)

var (
	codeFileName       = "code_file"
	codeHexName        = "code"
	dataHashName       = "data_hash"
	typeHashName       = "type_hash"
	amountName         = "amount"
	toName             = "to"
	outPointName       = "outpoint"
	dataName           = "data"
	dataFileName       = "data_file"
	foreignGovernance  = "foreign_governance"
	issueAmountName    = "issue"
	transferAmountName = "transfer"
	updateName         = "update"
)

// gardenFunc is the body of a command that runs workflows. It gets the
// reserved set recorded so far and returns what to print.
type gardenFunc func(ctx context.Context, s *session,
	g *udtgarden.Gardener, key *udtscript.Key,
	reserved udtwallet.ReservedSet) (interface{}, error)

// withGardener opens a session, wires a gardener for the configured key and
// runs f.
func withGardener(c *cli.Context, f gardenFunc) error {
	ctx, cancel := getContext()
	defer cancel()

	s, cleanUp, err := openSession(c)
	if err != nil {
		return err
	}
	defer cleanUp()

	key, err := s.key()
	if err != nil {
		return err
	}

	gardener, err := s.server.Gardener(ctx, key)
	if err != nil {
		return err
	}

	reserved, err := s.server.Reserved(ctx)
	if err != nil {
		return err
	}

	resp, err := f(ctx, s, gardener, key, reserved)
	if err != nil {
		return err
	}

	printJSON(resp)
	return nil
}

// readBlob reads bytes given either as hex or as a file.
func readBlob(c *cli.Context, hexName, fileName string) ([]byte, error) {
	switch {
	case c.String(hexName) != "" && c.String(fileName) != "":
		return nil, fmt.Errorf("only one of --%s and --%s may be set",
			hexName, fileName)

	case c.String(fileName) != "":
		return os.ReadFile(c.String(fileName))

	case c.String(hexName) != "":
		return cell.DecodeHex(c.String(hexName))

	default:
		return nil, nil
	}
}

// parseAmount parses a decimal token amount.
func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %v", s)
	}

	// Range checks happen when the amount is encoded.
	if _, err := cell.EncodeUDTData(amount); err != nil {
		return nil, err
	}

	return amount, nil
}

// parseRecipient decodes an address, defaulting to fallback.
func parseRecipient(addr string, fallback cell.Script) (cell.Script, error) {
	if addr == "" {
		return fallback, nil
	}

	script, _, err := udtscript.DecodeAddress(addr)
	return script, err
}

// parseHashFlag parses a mandatory hash flag.
func parseHashFlag(c *cli.Context, name string) (cell.Hash, error) {
	v, err := requireArg(c, name)
	if err != nil {
		return cell.Hash{}, err
	}

	return cell.HashFromHex(v)
}

var deployCommand = cli.Command{
	Name:  "deploy",
	Usage: "put a script binary into a code cell",
	Description: `
	Deploy the script binary into a cell guarded by our own lock. The cell
	holds enough capacity to stay live and is never spent as fees.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  codeFileName,
			Usage: "the path to the script binary",
		},
		cli.StringFlag{
			Name:  codeHexName,
			Usage: "the script binary as hex",
		},
	},
	Action: deploy,
}

func deploy(c *cli.Context) error {
	blob, err := readBlob(c, codeHexName, codeFileName)
	if err != nil {
		return err
	}

	return withGardener(c, func(ctx context.Context, _ *session,
		g *udtgarden.Gardener, _ *udtscript.Key,
		reserved udtwallet.ReservedSet) (interface{}, error) {

		code, _, err := g.DeployCode(ctx, blob, reserved)
		if err != nil {
			return nil, err
		}

		return newDeploymentResp(code), nil
	})
}

var issueCommand = cli.Command{
	Name:  "issue",
	Usage: "issue user defined tokens",
	Description: `
	Issue tokens run by deployed UDT code, governed by our own lock. The
	code is looked up in the journal by its data hash.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  dataHashName,
			Usage: "the data hash of the deployed UDT code",
		},
		cli.StringFlag{
			Name:  amountName,
			Usage: "the number of tokens to issue",
		},
	},
	Action: issue,
}

func issue(c *cli.Context) error {
	dataHash, err := parseHashFlag(c, dataHashName)
	if err != nil {
		return err
	}
	amountStr, err := requireArg(c, amountName)
	if err != nil {
		return err
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return err
	}

	return withGardener(c, func(ctx context.Context, s *session,
		g *udtgarden.Gardener, _ *udtscript.Key,
		reserved udtwallet.ReservedSet) (interface{}, error) {

		code, err := s.server.Journal().FetchDeployment(ctx, dataHash)
		if err != nil {
			return nil, err
		}

		udt, _, err := g.IssueUDT(ctx, code, amount, reserved)
		if err != nil {
			return nil, err
		}

		return newUDTCellResp(udt), nil
	})
}

var transferCommand = cli.Command{
	Name:  "transfer",
	Usage: "move tokens out of one of our token cells",
	Description: `
	Spend one of our cells of the token and create a cell holding amount
	tokens for the recipient. Without --outpoint the newest cell of the
	token in the journal is spent.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  typeHashName,
			Usage: "the type hash of the token",
		},
		cli.StringFlag{
			Name:  amountName,
			Usage: "the number of tokens to send",
		},
		cli.StringFlag{
			Name:  toName,
			Usage: "the recipient address, defaults to our own",
		},
		cli.StringFlag{
			Name:  outPointName,
			Usage: "the txhash:index of the cell to spend",
		},
	},
	Action: transfer,
}

// pickUDTCell selects the cell to spend from the journal entries of a
// token, newest first.
func pickUDTCell(cells []*udtgarden.UDTCell, outPoint string,
	lock cell.Script) (*udtgarden.UDTCell, error) {

	if len(cells) == 0 {
		return nil, errors.New("no cells of the token in the journal")
	}

	if outPoint == "" {
		udt := cells[len(cells)-1]
		if !udt.Lock.Equal(lock) {
			return nil, fmt.Errorf("%w: newest cell %v of the token",
				udtgarden.ErrForeignLock, udt.Input.PreviousOutput)
		}

		return udt, nil
	}

	for i := len(cells) - 1; i >= 0; i-- {
		if cells[i].Input.PreviousOutput.String() == outPoint {
			return cells[i], nil
		}
	}

	return nil, fmt.Errorf("cell %v not in the journal", outPoint)
}

func transfer(c *cli.Context) error {
	typeHash, err := parseHashFlag(c, typeHashName)
	if err != nil {
		return err
	}
	amountStr, err := requireArg(c, amountName)
	if err != nil {
		return err
	}
	amount, err := parseAmount(amountStr)
	if err != nil {
		return err
	}

	return withGardener(c, func(ctx context.Context, s *session,
		g *udtgarden.Gardener, key *udtscript.Key,
		reserved udtwallet.ReservedSet) (interface{}, error) {

		recipient, err := parseRecipient(
			c.String(toName), key.LockScript(),
		)
		if err != nil {
			return nil, err
		}

		cells, err := s.server.Journal().FetchUDTCells(ctx, typeHash)
		if err != nil {
			return nil, err
		}
		prev, err := pickUDTCell(
			cells, c.String(outPointName), key.LockScript(),
		)
		if err != nil {
			return nil, err
		}

		udt, _, err := g.TransferUDT(
			ctx, prev, amount, recipient, reserved,
		)
		if err != nil {
			return nil, err
		}

		return newUDTCellResp(udt), nil
	})
}

var typeIDCommands = []cli.Command{
	{
		Name:     "typeid",
		Usage:    "Mint and update type id cells.",
		Category: "Type ID",
		Subcommands: []cli.Command{
			mintTypeIDCommand,
			updateTypeIDCommand,
		},
	},
}

var mintTypeIDCommand = cli.Command{
	Name:  "mint",
	Usage: "create a type id cell",
	Description: `
	Create a singleton cell run by deployed type id code. The type id is
	derived from the first input of the minting transaction.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  dataHashName,
			Usage: "the data hash of the deployed type id code",
		},
		cli.StringFlag{
			Name:  dataName,
			Usage: "the cell data as hex",
		},
		cli.StringFlag{
			Name:  dataFileName,
			Usage: "a file holding the cell data",
		},
	},
	Action: mintTypeID,
}

func mintTypeID(c *cli.Context) error {
	dataHash, err := parseHashFlag(c, dataHashName)
	if err != nil {
		return err
	}
	data, err := readBlob(c, dataName, dataFileName)
	if err != nil {
		return err
	}

	return withGardener(c, func(ctx context.Context, s *session,
		g *udtgarden.Gardener, _ *udtscript.Key,
		reserved udtwallet.ReservedSet) (interface{}, error) {

		code, err := s.server.Journal().FetchDeployment(ctx, dataHash)
		if err != nil {
			return nil, err
		}

		typeID, _, err := g.MintTypeIDCell(ctx, code, data, reserved)
		if err != nil {
			return nil, err
		}

		return newTypeIDCellResp(typeID), nil
	})
}

var updateTypeIDCommand = cli.Command{
	Name:  "update",
	Usage: "replace the data of a type id cell",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  typeHashName,
			Usage: "the type hash of the type id cell",
		},
		cli.StringFlag{
			Name:  dataName,
			Usage: "the new cell data as hex",
		},
		cli.StringFlag{
			Name:  dataFileName,
			Usage: "a file holding the new cell data",
		},
	},
	Action: updateTypeID,
}

func updateTypeID(c *cli.Context) error {
	typeHash, err := parseHashFlag(c, typeHashName)
	if err != nil {
		return err
	}
	data, err := readBlob(c, dataName, dataFileName)
	if err != nil {
		return err
	}

	return withGardener(c, func(ctx context.Context, s *session,
		g *udtgarden.Gardener, _ *udtscript.Key,
		reserved udtwallet.ReservedSet) (interface{}, error) {

		versions, err := s.server.Journal().FetchTypeIDCells(
			ctx, typeHash,
		)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, fmt.Errorf("type id cell %v not in the "+
				"journal", typeHash)
		}

		typeID, _, err := g.UpdateTypeIDCell(
			ctx, versions[len(versions)-1], data, reserved,
		)
		if err != nil {
			return nil, err
		}

		return newTypeIDCellResp(typeID), nil
	})
}
