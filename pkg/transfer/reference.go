package transfer

import "encoding/base64"

// Reference derives the idempotency reference of a logical transfer.
// It is deterministic in (base, sender, receiver).
func Reference(base, sender, receiver string) string {
	return base64.StdEncoding.EncodeToString([]byte(base + "-" + sender + "-" + receiver))
}

// ResolveReference returns the reference a chain gives r: its own reference,
// else one derived from base, else none.
func ResolveReference(base, sender string, r Recipient) string {
	if r.Reference != "" {
		return r.Reference
	}
	if base == "" {
		return ""
	}
	return Reference(base, sender, r.Receiver)
}
