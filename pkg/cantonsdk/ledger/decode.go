package ledger

import (
	"encoding/json"
	"fmt"
)

// decodeContractMessage returns the active contract carried by msg, or nil
// for stream messages without a contract entry.
func decodeContractMessage(msg []byte) (*ActiveContract, error) {
	var m contractMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("decode active contract message: %w", err)
	}
	if m.ContractEntry == nil || m.ContractEntry.JsActiveContract == nil {
		return nil, nil
	}
	return m.ContractEntry.JsActiveContract, nil
}

// InterfaceView returns the raw view value for interfaceID, if present.
func (ce *CreatedEvent) InterfaceView(interfaceID string) (json.RawMessage, bool) {
	for _, iv := range ce.InterfaceViews {
		if iv.InterfaceID == interfaceID || matchesPackageName(iv.InterfaceID, interfaceID) {
			return iv.ViewValue, true
		}
	}
	return nil, false
}

// matchesPackageName compares a resolved "<pkgId>:Module:Entity" identifier
// with a "#package-name:Module:Entity" reference by module and entity.
func matchesPackageName(resolved, ref string) bool {
	if len(ref) == 0 || ref[0] != '#' {
		return false
	}
	return qualifiedName(resolved) == qualifiedName(ref) && qualifiedName(ref) != ""
}

func qualifiedName(id string) string {
	for i := 0; i < len(id); i++ {
		if id[i] == ':' {
			return id[i+1:]
		}
	}
	return ""
}
