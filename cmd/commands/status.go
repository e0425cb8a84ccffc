package commands

import (
	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/udtscript"
	"github.com/urfave/cli"
)

var addressName = "address"

var addressCommand = cli.Command{
	Name:  "address",
	Usage: "show the addresses of the configured key",
	Description: `
	Print the short and the full address of the default lock of the
	configured key on the configured network. Fund one of them before
	running any workflow.
	`,
	Action: address,
}

type addressResp struct {
	Network      string `json:"network"`
	ShortAddress string `json:"short_address"`
	FullAddress  string `json:"full_address"`
	LockHash     string `json:"lock_hash"`
}

func newAddressResp(lock cell.Script,
	net udtscript.Network) (*addressResp, error) {

	short, err := udtscript.EncodeShortAddress(lock, net)
	if err != nil {
		return nil, err
	}
	full, err := udtscript.EncodeFullAddress(lock, net)
	if err != nil {
		return nil, err
	}

	return &addressResp{
		Network:      net.String(),
		ShortAddress: short,
		FullAddress:  full,
		LockHash:     lock.Hash().String(),
	}, nil
}

func address(c *cli.Context) error {
	s, cleanUp, err := openSession(c)
	if err != nil {
		return err
	}
	defer cleanUp()

	key, err := s.key()
	if err != nil {
		return err
	}

	resp, err := newAddressResp(key.LockScript(), s.cfg.Network())
	if err != nil {
		return err
	}

	printJSON(resp)
	return nil
}

var reservedCommand = cli.Command{
	Name:  "reserved",
	Usage: "list the cells earlier workflows consumed",
	Description: `
	Print the out points recorded as spent by earlier runs. They are never
	offered as inputs again.
	`,
	Action: listReserved,
}

func listReserved(c *cli.Context) error {
	ctx, cancel := getContext()
	defer cancel()

	s, cleanUp, err := openSession(c)
	if err != nil {
		return err
	}
	defer cleanUp()

	reserved, err := s.server.Reserved(ctx)
	if err != nil {
		return err
	}

	printJSON(newReservedResp(reserved))
	return nil
}

var statusCommand = cli.Command{
	Name:  "status",
	Usage: "show the node's tip and what the journal holds",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name: addressName,
			Usage: "also count the live cells of this address, " +
				"ignored if --own is set",
		},
		cli.BoolFlag{
			Name:  "own",
			Usage: "count the live cells of the configured key",
		},
	},
	Action: status,
}

type statusResp struct {
	TipBlockNumber uint64            `json:"tip_block_number"`
	LiveCells      int               `json:"live_cells,omitempty"`
	LiveCapacity   uint64            `json:"live_capacity,omitempty"`
	Deployments    []*deploymentResp `json:"deployments"`
	Reserved       []string          `json:"reserved"`
}

func status(c *cli.Context) error {
	ctx, cancel := getContext()
	defer cancel()

	s, cleanUp, err := openSession(c)
	if err != nil {
		return err
	}
	defer cleanUp()

	var lock *cell.Script
	switch {
	case c.Bool("own"):
		key, err := s.key()
		if err != nil {
			return err
		}
		ownLock := key.LockScript()
		lock = &ownLock

	case c.String(addressName) != "":
		script, _, err := udtscript.DecodeAddress(c.String(addressName))
		if err != nil {
			return err
		}
		lock = &script
	}

	st, err := s.server.Status(ctx, lock)
	if err != nil {
		return err
	}

	resp := &statusResp{
		TipBlockNumber: st.TipBlockNumber,
		LiveCells:      st.LiveCells,
		LiveCapacity:   st.LiveCapacity,
		Deployments:    make([]*deploymentResp, 0, len(st.Deployments)),
		Reserved:       newReservedResp(st.Reserved),
	}
	for _, code := range st.Deployments {
		resp.Deployments = append(
			resp.Deployments, newDeploymentResp(code),
		)
	}

	printJSON(resp)
	return nil
}
