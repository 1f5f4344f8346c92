package token

import (
	"fmt"
	"strings"
)

// Network names a CBTC deployment.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkDevnet  Network = "devnet"
)

var decentralizedParties = map[Network]string{
	NetworkMainnet: "cbtc-network::12205af3b949a04776fc48cdcc05a060f6bda2e470632935f375d1049a8546a3b262",
	NetworkTestnet: "cbtc-network::12201b1741b63e2494e4214cf0bedc3d5a224da53b3bf4d76dba468f8e97eb15508f",
	NetworkDevnet:  "cbtc-network::12202a83c6f4082217c175e29bc53da5f2703ba2675778ab99217a5a881a949203ff",
}

// DecentralizedPartyID returns the CBTC instrument admin party for a network.
func DecentralizedPartyID(network string) (string, error) {
	id, ok := decentralizedParties[Network(strings.ToLower(strings.TrimSpace(network)))]
	if !ok {
		return "", fmt.Errorf("unknown network %q", network)
	}
	return id, nil
}
