package registry

import (
	"encoding/json"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
)

// TransferContext is the reusable transaction-building context returned by
// the transfer-factory endpoint. It is read-only once fetched.
type TransferContext struct {
	FactoryID          string
	TransferKind       string
	ChoiceContextData  json.RawMessage
	DisclosedContracts []ledger.DisclosedContract
}

// ChoiceContext is the context required to exercise a choice on a
// transfer instruction.
type ChoiceContext struct {
	ChoiceContextData  json.RawMessage
	DisclosedContracts []ledger.DisclosedContract
}

type transferFactoryRequest struct {
	ChoiceArguments    token.TransferFactoryArgs `json:"choiceArguments"`
	ExcludeDebugFields bool                      `json:"excludeDebugFields"`
}

type transferFactoryResponse struct {
	FactoryID     string                `json:"factoryId"`
	TransferKind  string                `json:"transferKind"`
	ChoiceContext choiceContextResponse `json:"choiceContext"`
}

type choiceContextResponse struct {
	ChoiceContextData struct {
		Values json.RawMessage `json:"values"`
	} `json:"choiceContextData"`
	DisclosedContracts []ledger.DisclosedContract `json:"disclosedContracts"`
}

type choiceContextRequest struct {
	Meta struct {
		Values string `json:"values"`
	} `json:"meta"`
}
