package token

import (
	"encoding/json"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
)

var emptyObject = json.RawMessage(`{}`)

// ChoiceContext is the opaque registry-supplied context attached to a choice.
type ChoiceContext struct {
	Values json.RawMessage `json:"values"`
}

// ExtraArgs carries the choice context and an empty meta.
type ExtraArgs struct {
	Context ChoiceContext `json:"context"`
	Meta    Meta          `json:"meta"`
}

// TransferFactoryArgs is the TransferFactory_Transfer choice argument.
type TransferFactoryArgs struct {
	ExpectedAdmin string    `json:"expectedAdmin"`
	Transfer      *Transfer `json:"transfer"`
	ExtraArgs     ExtraArgs `json:"extraArgs"`
}

// InstructionArgs is the TransferInstruction_Accept / _Withdraw choice argument.
type InstructionArgs struct {
	ExtraArgs ExtraArgs `json:"extraArgs"`
}

// NewExtraArgs wraps context values, substituting an empty object when absent.
func NewExtraArgs(values json.RawMessage) ExtraArgs {
	if len(values) == 0 || string(values) == "null" {
		values = emptyObject
	}
	return ExtraArgs{
		Context: ChoiceContext{Values: values},
		Meta:    Meta{Values: map[string]string{}},
	}
}

// TransferCommand exercises TransferFactory_Transfer on factoryID.
func TransferCommand(factoryID, expectedAdmin string, t *Transfer, contextValues json.RawMessage) ledger.Command {
	return ledger.Exercise(TemplateTransferFactory, factoryID, ChoiceTransferFactoryTransfer, &TransferFactoryArgs{
		ExpectedAdmin: expectedAdmin,
		Transfer:      t,
		ExtraArgs:     NewExtraArgs(contextValues),
	})
}

// AcceptCommand exercises TransferInstruction_Accept on instructionCid.
func AcceptCommand(instructionCid string, contextValues json.RawMessage) ledger.Command {
	return ledger.Exercise(TemplateTransferInstruction, instructionCid, ChoiceTransferInstructionAccept, &InstructionArgs{
		ExtraArgs: NewExtraArgs(contextValues),
	})
}

// WithdrawCommand exercises TransferInstruction_Withdraw on instructionCid.
func WithdrawCommand(instructionCid string, contextValues json.RawMessage) ledger.Command {
	return ledger.Exercise(TemplateTransferInstruction, instructionCid, ChoiceTransferInstructionWithdraw, &InstructionArgs{
		ExtraArgs: NewExtraArgs(contextValues),
	})
}
