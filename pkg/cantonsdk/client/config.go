package client

import (
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/auth"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/registry"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
)

// Config contains the configuration required to initialize the SDK client.
// It aggregates all sub-component configurations needed by the SDK.
type Config struct {
	Ledger   *ledger.Config
	Auth     *auth.Config
	Registry *registry.Config
	Token    *token.Config
}
