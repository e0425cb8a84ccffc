package commands

import (
	"context"

	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/udtgarden"
	"github.com/cellforge/udtforge/udtscript"
	"github.com/cellforge/udtforge/udtwallet"
	"github.com/lightningnetwork/lnd/fn"
	"github.com/urfave/cli"
)

var scenarioCommands = []cli.Command{
	{
		Name:     "scenario",
		Usage:    "Run a full workflow from deployment on.",
		Category: "Scenarios",
		Subcommands: []cli.Command{
			udtScenarioCommand,
			typeIDScenarioCommand,
		},
	},
}

var udtScenarioCommand = cli.Command{
	Name:  "udt",
	Usage: "deploy UDT code, issue tokens and transfer some of them",
	Description: `
	Deploy the UDT code, issue --issue tokens and send --transfer of them
	to the recipient. With --foreign_governance a last issuance under that
	governance hash is attempted, which the ledger must reject.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  codeFileName,
			Usage: "the path to the UDT script binary",
		},
		cli.StringFlag{
			Name:  codeHexName,
			Usage: "the UDT script binary as hex",
		},
		cli.StringFlag{
			Name:  issueAmountName,
			Usage: "the number of tokens to issue",
		},
		cli.StringFlag{
			Name:  transferAmountName,
			Usage: "the number of tokens to transfer",
		},
		cli.StringFlag{
			Name:  toName,
			Usage: "the recipient address, defaults to our own",
		},
		cli.StringFlag{
			Name:  foreignGovernance,
			Usage: "a governance hash our lock can't satisfy",
		},
	},
	Action: runUDTScenario,
}

type udtScenarioResp struct {
	Code             *deploymentResp `json:"code"`
	Issued           *udtCellResp    `json:"issued"`
	Transferred      *udtCellResp    `json:"transferred"`
	ForeignRejection string          `json:"foreign_rejection,omitempty"`
}

func runUDTScenario(c *cli.Context) error {
	code, err := readBlob(c, codeHexName, codeFileName)
	if err != nil {
		return err
	}

	issueStr, err := requireArg(c, issueAmountName)
	if err != nil {
		return err
	}
	issueAmount, err := parseAmount(issueStr)
	if err != nil {
		return err
	}

	transferStr, err := requireArg(c, transferAmountName)
	if err != nil {
		return err
	}
	transferAmount, err := parseAmount(transferStr)
	if err != nil {
		return err
	}

	scenario := &udtgarden.UDTScenario{
		Code:           code,
		IssueAmount:    issueAmount,
		TransferAmount: transferAmount,
	}
	if c.IsSet(foreignGovernance) {
		governance, err := cell.HashFromHex(c.String(foreignGovernance))
		if err != nil {
			return err
		}
		scenario.ForeignGovernance = fn.Some(governance)
	}

	return withGardener(c, func(ctx context.Context, _ *session,
		g *udtgarden.Gardener, key *udtscript.Key,
		reserved udtwallet.ReservedSet) (interface{}, error) {

		recipient, err := parseRecipient(
			c.String(toName), key.LockScript(),
		)
		if err != nil {
			return nil, err
		}
		scenario.Recipient = recipient

		res, _, err := g.RunUDTScenario(ctx, scenario, reserved)
		if err != nil {
			return nil, err
		}

		resp := &udtScenarioResp{
			Code:        newDeploymentResp(res.Code),
			Issued:      newUDTCellResp(res.Issued),
			Transferred: newUDTCellResp(res.Transferred),
		}
		if res.ForeignRejection != nil {
			resp.ForeignRejection = res.ForeignRejection.Error()
		}

		return resp, nil
	})
}

var typeIDScenarioCommand = cli.Command{
	Name:  "typeid",
	Usage: "deploy type id code, mint a cell and update it",
	Description: `
	Deploy the type id code, mint a cell holding --data and update it
	once for every --update, in order.
	`,
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  codeFileName,
			Usage: "the path to the type id script binary",
		},
		cli.StringFlag{
			Name:  codeHexName,
			Usage: "the type id script binary as hex",
		},
		cli.StringFlag{
			Name:  dataName,
			Usage: "the data of the minted cell as hex",
		},
		cli.StringSliceFlag{
			Name:  updateName,
			Usage: "the data of an update as hex, may be repeated",
		},
	},
	Action: runTypeIDScenario,
}

type typeIDScenarioResp struct {
	Code    *deploymentResp   `json:"code"`
	Minted  *typeIDCellResp   `json:"minted"`
	Updates []*typeIDCellResp `json:"updates"`
}

func runTypeIDScenario(c *cli.Context) error {
	code, err := readBlob(c, codeHexName, codeFileName)
	if err != nil {
		return err
	}

	data, err := cell.DecodeHex(c.String(dataName))
	if err != nil {
		return err
	}

	scenario := &udtgarden.TypeIDScenario{
		Code: code,
		Data: data,
	}
	for _, update := range c.StringSlice(updateName) {
		updateData, err := cell.DecodeHex(update)
		if err != nil {
			return err
		}
		scenario.Updates = append(scenario.Updates, updateData)
	}

	return withGardener(c, func(ctx context.Context, _ *session,
		g *udtgarden.Gardener, _ *udtscript.Key,
		reserved udtwallet.ReservedSet) (interface{}, error) {

		res, _, err := g.RunTypeIDScenario(ctx, scenario, reserved)
		if err != nil {
			return nil, err
		}

		resp := &typeIDScenarioResp{
			Code:    newDeploymentResp(res.Code),
			Minted:  newTypeIDCellResp(res.Minted),
			Updates: make([]*typeIDCellResp, 0, len(res.Updates)),
		}
		for _, update := range res.Updates {
			resp.Updates = append(
				resp.Updates, newTypeIDCellResp(update),
			)
		}

		return resp, nil
	})
}
