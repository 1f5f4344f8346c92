package token

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
)

const (
	TemplateTransferFactory     = "#splice-api-token-transfer-instruction-v1:Splice.Api.Token.TransferInstructionV1:TransferFactory"
	TemplateTransferInstruction = "#splice-api-token-transfer-instruction-v1:Splice.Api.Token.TransferInstructionV1:TransferInstruction"
	TemplateTransferOffer       = "#utility-registry-app-v0:Utility.Registry.App.V0.Model.Transfer:TransferOffer"
	InterfaceHolding            = "#splice-api-token-holding-v1:Splice.Api.Token.HoldingV1:Holding"

	ChoiceTransferFactoryTransfer     = "TransferFactory_Transfer"
	ChoiceTransferInstructionAccept   = "TransferInstruction_Accept"
	ChoiceTransferInstructionWithdraw = "TransferInstruction_Withdraw"

	MetaReason    = "splice.lfdecentralizedtrust.org/reason"
	MetaReference = "splice.lfdecentralizedtrust.org/reference"
	MetaTxKind    = "splice.lfdecentralizedtrust.org/tx-kind"

	TxKindMergeSplit = "merge-split"

	// DefaultInstrumentID is the CBTC instrument identifier.
	DefaultInstrumentID = "CBTC"
)

// InstrumentID identifies a token instrument by its admin party and id.
type InstrumentID struct {
	Admin string `json:"admin"`
	ID    string `json:"id"`
}

// Meta is a string map carried on transfers.
type Meta struct {
	Values map[string]string `json:"values"`
}

// Transfer is the token-standard transfer description.
type Transfer struct {
	Sender           string       `json:"sender"`
	Receiver         string       `json:"receiver"`
	Amount           string       `json:"amount"`
	InstrumentID     InstrumentID `json:"instrumentId"`
	RequestedAt      string       `json:"requestedAt"`
	ExecuteBefore    string       `json:"executeBefore"`
	InputHoldingCids []string     `json:"inputHoldingCids"`
	Meta             Meta         `json:"meta"`
}

// TransferSpec is the input to NewTransfer.
type TransferSpec struct {
	Sender        string
	Receiver      string
	Amount        string
	Instrument    InstrumentID
	Inputs        []string
	Now           time.Time
	ExecuteBefore time.Duration
	Meta          map[string]string
}

// NewTransfer builds a Transfer, copying inputs and meta so the result
// shares no state with the caller.
func NewTransfer(spec TransferSpec) *Transfer {
	inputs := make([]string, len(spec.Inputs))
	copy(inputs, spec.Inputs)

	meta := make(map[string]string, len(spec.Meta))
	for k, v := range spec.Meta {
		meta[k] = v
	}

	return &Transfer{
		Sender:           spec.Sender,
		Receiver:         spec.Receiver,
		Amount:           spec.Amount,
		InstrumentID:     spec.Instrument,
		RequestedAt:      FormatTimestamp(spec.Now),
		ExecuteBefore:    FormatTimestamp(spec.Now.Add(spec.ExecuteBefore)),
		InputHoldingCids: inputs,
		Meta:             Meta{Values: meta},
	}
}

// FormatTimestamp renders t in RFC 3339 UTC with at most microsecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
}

// Holding is an unlocked token holding of the configured instrument.
type Holding struct {
	ContractID   string
	Owner        string
	Amount       string
	InstrumentID InstrumentID
	Disclosed    ledger.DisclosedContract
}

// Role selects which side of a pending transfer instruction a party is on.
type Role int

const (
	RoleReceiver Role = iota
	RoleSender
)

func (r Role) String() string {
	if r == RoleSender {
		return "sender"
	}
	return "receiver"
}

// PendingInstruction is a transfer offer awaiting accept or withdraw.
type PendingInstruction struct {
	ContractID    string
	Sender        string
	Receiver      string
	Amount        string
	InstrumentID  InstrumentID
	RequestedAt   string
	ExecuteBefore string
}

type holdingView struct {
	Owner        string          `json:"owner"`
	InstrumentID InstrumentID    `json:"instrumentId"`
	Amount       string          `json:"amount"`
	Lock         json.RawMessage `json:"lock"`
}

func (v *holdingView) locked() bool {
	return len(v.Lock) > 0 && string(v.Lock) != "null"
}

type offerArgument struct {
	Transfer struct {
		Sender       string       `json:"sender"`
		Receiver     string       `json:"receiver"`
		Amount        string       `json:"amount"`
		InstrumentID  InstrumentID `json:"instrumentId"`
		RequestedAt   string       `json:"requestedAt"`
		ExecuteBefore string       `json:"executeBefore"`
	} `json:"transfer"`
}

func decodeHolding(ce *ledger.CreatedEvent) (*holdingView, error) {
	raw, ok := ce.InterfaceView(InterfaceHolding)
	if !ok {
		return nil, nil
	}
	var v holdingView
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode holding view %s: %w", ce.ContractID, err)
	}
	return &v, nil
}

func decodeOffer(ce *ledger.CreatedEvent) (*offerArgument, error) {
	if len(ce.CreateArgument) == 0 {
		return nil, nil
	}
	var a offerArgument
	if err := json.Unmarshal(ce.CreateArgument, &a); err != nil {
		return nil, fmt.Errorf("decode transfer offer %s: %w", ce.ContractID, err)
	}
	return &a, nil
}
