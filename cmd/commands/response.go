package commands

import (
	"github.com/cellforge/udtforge/cell"
	"github.com/cellforge/udtforge/chainrpc"
	"github.com/cellforge/udtforge/udtgarden"
	"github.com/cellforge/udtforge/udtwallet"
)

type deploymentResp struct {
	TxHash         string `json:"tx_hash"`
	DataHash       string `json:"data_hash"`
	GovernanceHash string `json:"governance_hash"`
	CellDep        string `json:"cell_dep"`
	Size           int    `json:"size"`
	Capacity       uint64 `json:"capacity"`
	State          string `json:"state"`
}

func newDeploymentResp(code *udtgarden.DeployedCode) *deploymentResp {
	return &deploymentResp{
		TxHash:         code.TxHash.String(),
		DataHash:       code.DataHash.String(),
		GovernanceHash: code.GovernanceHash.String(),
		CellDep:        code.CellDep.OutPoint.String(),
		Size:           code.Size,
		Capacity:       code.Capacity,
		State:          code.State.String(),
	}
}

type udtCellResp struct {
	OutPoint   string          `json:"out_point"`
	TypeScript chainrpc.Script `json:"type_script"`
	TypeHash   string          `json:"type_hash"`
	Amount     string          `json:"amount"`
	Lock       chainrpc.Script `json:"lock"`
	Capacity   uint64          `json:"capacity"`
	State      string          `json:"state"`
}

func newUDTCellResp(udt *udtgarden.UDTCell) *udtCellResp {
	return &udtCellResp{
		OutPoint:   udt.Input.PreviousOutput.String(),
		TypeScript: chainrpc.NewScript(udt.TypeScript),
		TypeHash:   udt.TypeHash.String(),
		Amount:     udt.Amount.String(),
		Lock:       chainrpc.NewScript(udt.Lock),
		Capacity:   udt.Capacity,
		State:      udt.State.String(),
	}
}

type typeIDCellResp struct {
	OutPoint         string          `json:"out_point"`
	TypeScript       chainrpc.Script `json:"type_script"`
	TypeHash         string          `json:"type_hash"`
	ConsumedOutPoint string          `json:"consumed_out_point"`
	Data             string          `json:"data"`
	Capacity         uint64          `json:"capacity"`
	State            string          `json:"state"`
}

func newTypeIDCellResp(typeID *udtgarden.TypeIDCell) *typeIDCellResp {
	return &typeIDCellResp{
		OutPoint:         typeID.Input.PreviousOutput.String(),
		TypeScript:       chainrpc.NewScript(typeID.TypeScript),
		TypeHash:         typeID.TypeHash.String(),
		ConsumedOutPoint: typeID.ConsumedOutPoint.String(),
		Data:             cell.EncodeHex(typeID.Data),
		Capacity:         typeID.Capacity,
		State:            typeID.State.String(),
	}
}

func newReservedResp(reserved udtwallet.ReservedSet) []string {
	ops := reserved.OutPoints()
	resp := make([]string, 0, len(ops))
	for _, op := range ops {
		resp = append(resp, op.String())
	}

	return resp
}
