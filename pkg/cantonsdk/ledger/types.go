package ledger

import "encoding/json"

// SubmitRequest is the JSON Ledger API command submission body.
type SubmitRequest struct {
	ActAs              []string            `json:"actAs"`
	CommandID          string              `json:"commandId"`
	DisclosedContracts []DisclosedContract `json:"disclosedContracts"`
	Commands           []Command           `json:"commands"`
	ReadAs             []string            `json:"readAs,omitempty"`
	UserID             string              `json:"userId,omitempty"`
}

// Command is one entry of a submission. Only exercise commands are issued.
type Command struct {
	ExerciseCommand *ExerciseCommand `json:"ExerciseCommand,omitempty"`
}

// ExerciseCommand exercises a choice on a contract.
type ExerciseCommand struct {
	TemplateID     string `json:"templateId"`
	ContractID     string `json:"contractId"`
	Choice         string `json:"choice"`
	ChoiceArgument any    `json:"choiceArgument"`
}

// DisclosedContract grants the submitter visibility of a contract it does not observe.
type DisclosedContract struct {
	TemplateID       string `json:"templateId"`
	ContractID       string `json:"contractId"`
	CreatedEventBlob string `json:"createdEventBlob"`
	SynchronizerID   string `json:"synchronizerId"`
}

// Exercise returns a Command exercising choice on contractID.
func Exercise(templateID, contractID, choice string, arg any) Command {
	return Command{ExerciseCommand: &ExerciseCommand{
		TemplateID:     templateID,
		ContractID:     contractID,
		Choice:         choice,
		ChoiceArgument: arg,
	}}
}

// IdentifierFilter selects contracts by interface or template.
// Exactly one field is set.
type IdentifierFilter struct {
	InterfaceFilter *InterfaceFilter `json:"InterfaceFilter,omitempty"`
	TemplateFilter  *TemplateFilter  `json:"TemplateFilter,omitempty"`
}

type InterfaceFilter struct {
	Value InterfaceFilterValue `json:"value"`
}

type InterfaceFilterValue struct {
	InterfaceID             string `json:"interfaceId,omitempty"`
	IncludeInterfaceView    bool   `json:"includeInterfaceView"`
	IncludeCreatedEventBlob bool   `json:"includeCreatedEventBlob"`
}

type TemplateFilter struct {
	Value TemplateFilterValue `json:"value"`
}

type TemplateFilterValue struct {
	TemplateID              string `json:"templateId,omitempty"`
	IncludeCreatedEventBlob bool   `json:"includeCreatedEventBlob"`
}

// ByInterface filters on an interface id, including its view and the event blob.
func ByInterface(interfaceID string) IdentifierFilter {
	return IdentifierFilter{InterfaceFilter: &InterfaceFilter{Value: InterfaceFilterValue{
		InterfaceID:             interfaceID,
		IncludeInterfaceView:    true,
		IncludeCreatedEventBlob: true,
	}}}
}

// ByTemplate filters on a template id, including the event blob.
func ByTemplate(templateID string) IdentifierFilter {
	return IdentifierFilter{TemplateFilter: &TemplateFilter{Value: TemplateFilterValue{
		TemplateID:              templateID,
		IncludeCreatedEventBlob: true,
	}}}
}

type cumulativeFilter struct {
	IdentifierFilter IdentifierFilter `json:"identifierFilter"`
}

type filters struct {
	Cumulative []cumulativeFilter `json:"cumulative"`
}

type transactionFilter struct {
	FiltersByParty map[string]filters `json:"filtersByParty"`
}

type activeContractsRequest struct {
	Filter         transactionFilter `json:"filter"`
	Verbose        bool              `json:"verbose"`
	ActiveAtOffset int64             `json:"activeAtOffset"`
}

// ActiveContractsQuery selects the contracts visible to Party at an offset.
type ActiveContractsQuery struct {
	Party  string
	Filter IdentifierFilter

	// ActiveAtOffset is the snapshot offset; zero resolves the current ledger end.
	ActiveAtOffset int64
}

func (q *ActiveContractsQuery) request(offset int64) activeContractsRequest {
	return activeContractsRequest{
		Filter: transactionFilter{FiltersByParty: map[string]filters{
			q.Party: {Cumulative: []cumulativeFilter{{IdentifierFilter: q.Filter}}},
		}},
		ActiveAtOffset: offset,
	}
}

// ActiveContract is one entry of the active contract set.
type ActiveContract struct {
	CreatedEvent   CreatedEvent `json:"createdEvent"`
	SynchronizerID string       `json:"synchronizerId"`
}

// CreatedEvent is the creation event of an active contract.
type CreatedEvent struct {
	ContractID       string          `json:"contractId"`
	TemplateID       string          `json:"templateId"`
	CreateArgument   json.RawMessage `json:"createArgument"`
	CreatedEventBlob string          `json:"createdEventBlob"`
	InterfaceViews   []InterfaceView `json:"interfaceViews"`
	Signatories      []string        `json:"signatories"`
	Offset           int64           `json:"offset"`
}

// InterfaceView is an interface projection of a created contract.
type InterfaceView struct {
	InterfaceID string          `json:"interfaceId"`
	ViewValue   json.RawMessage `json:"viewValue"`
}

// Disclosed returns the contract as a disclosed contract.
func (ac *ActiveContract) Disclosed() DisclosedContract {
	return DisclosedContract{
		TemplateID:       ac.CreatedEvent.TemplateID,
		ContractID:       ac.CreatedEvent.ContractID,
		CreatedEventBlob: ac.CreatedEvent.CreatedEventBlob,
		SynchronizerID:   ac.SynchronizerID,
	}
}

type contractMessage struct {
	WorkflowID    string `json:"workflowId"`
	ContractEntry *struct {
		JsActiveContract *ActiveContract `json:"JsActiveContract"`
	} `json:"contractEntry"`
}

type ledgerEndResponse struct {
	Offset int64 `json:"offset"`
}
