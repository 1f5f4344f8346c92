package transfer

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
)

// Extracted is the chaining data read from a TransferFactory_Transfer response.
type Extracted struct {
	UpdateID       string
	ChangeCids     []string
	InstructionCid string
}

type treeResponse struct {
	TransactionTree *struct {
		UpdateID   *string                    `json:"updateId"`
		EventsByID map[string]json.RawMessage `json:"eventsById"`
	} `json:"transactionTree"`
}

type treeEvent struct {
	ExercisedTreeEvent *struct {
		Value struct {
			Choice         string          `json:"choice"`
			ExerciseResult json.RawMessage `json:"exerciseResult"`
		} `json:"value"`
	} `json:"ExercisedTreeEvent"`
}

type exerciseResult struct {
	SenderChangeCids json.RawMessage `json:"senderChangeCids"`
	Output           struct {
		Value struct {
			TransferInstructionCid json.RawMessage `json:"transferInstructionCid"`
			ReceiverHoldingCids    json.RawMessage `json:"receiverHoldingCids"`
		} `json:"value"`
	} `json:"output"`
}

// Extract reads the update id, sender change and transfer instruction id
// from a raw transaction tree response.
func Extract(raw []byte) (*Extracted, error) {
	updateID, res, err := findExercise(raw, token.ChoiceTransferFactoryTransfer)
	if err != nil {
		return nil, err
	}

	change, err := stringList(res.SenderChangeCids, "senderChangeCids")
	if err != nil {
		return nil, err
	}
	instruction, err := stringField(res.Output.Value.TransferInstructionCid, "output.value.transferInstructionCid")
	if err != nil {
		return nil, err
	}

	return &Extracted{UpdateID: updateID, ChangeCids: change, InstructionCid: instruction}, nil
}

// ExtractReceiverHoldings reads output.value.receiverHoldingCids of the
// exercised choice, as returned by a completed self-transfer.
func ExtractReceiverHoldings(raw []byte, choice string) (updateID string, receiver, change []string, err error) {
	updateID, res, err := findExercise(raw, choice)
	if err != nil {
		return "", nil, nil, err
	}
	receiver, err = stringList(res.Output.Value.ReceiverHoldingCids, "output.value.receiverHoldingCids")
	if err != nil {
		return "", nil, nil, err
	}
	if len(res.SenderChangeCids) > 0 && string(res.SenderChangeCids) != "null" {
		change, err = stringList(res.SenderChangeCids, "senderChangeCids")
		if err != nil {
			return "", nil, nil, err
		}
	}
	return updateID, receiver, change, nil
}

// ExtractUpdateID reads transactionTree.updateId.
func ExtractUpdateID(raw []byte) (string, error) {
	tree, err := decodeTree(raw)
	if err != nil {
		return "", err
	}
	return tree.updateID()
}

func decodeTree(raw []byte) (*treeResponse, error) {
	var t treeResponse
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, &ResponseParseError{Kind: ParseInvalidJSON, Err: err}
	}
	if t.TransactionTree == nil {
		return nil, &ResponseParseError{Kind: ParseMissingField, Field: "transactionTree"}
	}
	return &t, nil
}

func (t *treeResponse) updateID() (string, error) {
	if t.TransactionTree.UpdateID == nil || *t.TransactionTree.UpdateID == "" {
		return "", &ResponseParseError{Kind: ParseMissingField, Field: "transactionTree.updateId"}
	}
	return *t.TransactionTree.UpdateID, nil
}

// findExercise returns the exercise result of the first event, in event id
// order, that exercised choice.
func findExercise(raw []byte, choice string) (string, *exerciseResult, error) {
	tree, err := decodeTree(raw)
	if err != nil {
		return "", nil, err
	}
	updateID, err := tree.updateID()
	if err != nil {
		return "", nil, err
	}

	exercised := 0
	for _, id := range sortedEventIDs(tree.TransactionTree.EventsByID) {
		var ev treeEvent
		if err := json.Unmarshal(tree.TransactionTree.EventsByID[id], &ev); err != nil {
			return "", nil, &ResponseParseError{Kind: ParseTypeMismatch, Field: "eventsById." + id, Err: err}
		}
		if ev.ExercisedTreeEvent == nil {
			continue
		}
		exercised++
		if ev.ExercisedTreeEvent.Value.Choice != choice {
			continue
		}

		result := ev.ExercisedTreeEvent.Value.ExerciseResult
		if len(result) == 0 || string(result) == "null" {
			return "", nil, &ResponseParseError{Kind: ParseMissingField, Field: "exerciseResult"}
		}
		var res exerciseResult
		if err := json.Unmarshal(result, &res); err != nil {
			return "", nil, &ResponseParseError{Kind: ParseTypeMismatch, Field: "exerciseResult", Err: err}
		}
		return updateID, &res, nil
	}

	if exercised == 0 {
		return "", nil, &ResponseParseError{Kind: ParseMissingEvent, Field: "ExercisedTreeEvent"}
	}
	return "", nil, &ResponseParseError{Kind: ParseWrongChoice, Field: choice}
}

// sortedEventIDs orders event ids numerically where they parse, else lexically.
func sortedEventIDs(events map[string]json.RawMessage) []string {
	ids := make([]string, 0, len(events))
	for id := range events {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}

func stringList(raw json.RawMessage, field string) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, &ResponseParseError{Kind: ParseMissingField, Field: field}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &ResponseParseError{Kind: ParseTypeMismatch, Field: field, Err: err}
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func stringField(raw json.RawMessage, field string) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", &ResponseParseError{Kind: ParseMissingField, Field: field}
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &ResponseParseError{Kind: ParseTypeMismatch, Field: field, Err: err}
	}
	if out == "" {
		return "", &ResponseParseError{Kind: ParseMissingField, Field: field}
	}
	return out, nil
}
