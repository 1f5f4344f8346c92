package api

import (
	"context"
	"net/http"

	apperrors "github.com/chainsafe/canton-cbtc/pkg/app/errors"
	apphttp "github.com/chainsafe/canton-cbtc/pkg/app/http"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
	"github.com/chainsafe/canton-cbtc/pkg/transfer"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HoldingLister lists a party's CBTC holdings.
type HoldingLister interface {
	Holdings(ctx context.Context, accessToken, party string) ([]*token.Holding, error)
}

// HoldingsHandler serves the configured party's CBTC balance.
type HoldingsHandler struct {
	lister  HoldingLister
	session transfer.TokenSource
	party   string
	logger  *zap.Logger
}

// NewHoldingsHandler creates a balance handler for party.
func NewHoldingsHandler(lister HoldingLister, session transfer.TokenSource, party string, logger *zap.Logger) *HoldingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HoldingsHandler{lister: lister, session: session, party: party, logger: logger}
}

// RegisterRoutes mounts the holdings endpoint on r.
func (h *HoldingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/holdings", apphttp.HandleError(h.logger, h.getHoldings))
}

type holdingView struct {
	ContractID string `json:"contract_id"`
	Amount     string `json:"amount"`
}

type holdingsResponse struct {
	Party    string        `json:"party"`
	Balance  string        `json:"balance"`
	Count    int           `json:"count"`
	Holdings []holdingView `json:"holdings"`
}

func (h *HoldingsHandler) getHoldings(w http.ResponseWriter, r *http.Request) error {
	accessToken, err := h.session.EnsureFresh(r.Context())
	if err != nil {
		return apperrors.DependencyError(err, "identity provider unavailable")
	}

	holdings, err := h.lister.Holdings(r.Context(), accessToken, h.party)
	if err != nil {
		return apperrors.DependencyError(err, "failed to list holdings")
	}

	balance, err := token.Balance(holdings)
	if err != nil {
		return apperrors.GeneralError(err)
	}

	resp := holdingsResponse{
		Party:    h.party,
		Balance:  balance,
		Count:    len(holdings),
		Holdings: make([]holdingView, 0, len(holdings)),
	}
	for _, hd := range holdings {
		resp.Holdings = append(resp.Holdings, holdingView{ContractID: hd.ContractID, Amount: hd.Amount})
	}
	return apphttp.WriteJSON(w, http.StatusOK, resp)
}
