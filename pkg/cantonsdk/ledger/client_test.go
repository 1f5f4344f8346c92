package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTreeResponse = `{"transactionTree":{"updateId":"upd-1","eventsById":{}}}`

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(&Config{Host: srv.URL})
	require.NoError(t, err)
	return c
}

func TestClient_SubmitAndWaitForTransactionTree(t *testing.T) {
	var got SubmitRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pathSubmitTree, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(testTreeResponse))
	}))

	raw, err := c.SubmitAndWaitForTransactionTree(context.Background(), "tok", &SubmitRequest{
		ActAs:    []string{"alice::1220"},
		Commands: []Command{Exercise("#pkg:M:T", "cid-1", "Do", map[string]any{"x": 1})},
	})
	require.NoError(t, err)
	assert.JSONEq(t, testTreeResponse, string(raw))

	assert.Equal(t, []string{"alice::1220"}, got.ActAs)
	assert.NotEmpty(t, got.CommandID)
	assert.NotNil(t, got.DisclosedContracts)
	require.Len(t, got.Commands, 1)
	assert.Equal(t, "Do", got.Commands[0].ExerciseCommand.Choice)
	assert.Equal(t, "cid-1", got.Commands[0].ExerciseCommand.ContractID)
}

func TestClient_SubmitNonSuccess(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"CONTRACT_NOT_FOUND"}`))
	}))

	_, err := c.SubmitAndWaitForTransactionTree(context.Background(), "tok", &SubmitRequest{
		ActAs:    []string{"alice"},
		Commands: []Command{Exercise("t", "c", "x", nil)},
	})
	var se *SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "CONTRACT_NOT_FOUND")
}

func TestClient_SubmitRejectsEmptyRequest(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	_, err := c.SubmitAndWaitForTransactionTree(context.Background(), "tok", &SubmitRequest{ActAs: []string{"a"}})
	var se *SubmissionError
	require.ErrorAs(t, err, &se)
}

func TestClient_GetLedgerEnd(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathLedgerEnd, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"offset":42}`))
	}))

	end, err := c.GetLedgerEnd(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(42), end)
}

func acsServer(t *testing.T, ledgerEnd int64, messages []string, gotReq *activeContractsRequest, gotProtocols *[]string) http.Handler {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{"daml.ws.auth"}}

	mux := http.NewServeMux()
	mux.HandleFunc(pathLedgerEnd, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ledgerEndResponse{Offset: ledgerEnd})
	})
	mux.HandleFunc(pathActiveContracts, func(w http.ResponseWriter, r *http.Request) {
		*gotProtocols = websocket.Subprotocols(r)
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		assert.NoError(t, conn.ReadJSON(gotReq))
		for _, m := range messages {
			assert.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(m)))
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})
	return mux
}

func TestClient_GetActiveContracts(t *testing.T) {
	var (
		gotReq       activeContractsRequest
		gotProtocols []string
	)
	messages := []string{
		`{"workflowId":"","contractEntry":{"JsActiveContract":{"createdEvent":{"contractId":"h1","templateId":"pkg:Holding:H","createdEventBlob":"blob1","interfaceViews":[{"interfaceId":"pkg:Splice.Api.Token.HoldingV1:Holding","viewValue":{"amount":"1.0"}}]},"synchronizerId":"sync-1"}}}`,
		`{"workflowId":"","contractEntry":{"JsEmpty":{}}}`,
		`{"workflowId":"","contractEntry":{"JsActiveContract":{"createdEvent":{"contractId":"h2","templateId":"pkg:Holding:H"},"synchronizerId":"sync-1"}}}`,
	}
	c := newTestClient(t, acsServer(t, 99, messages, &gotReq, &gotProtocols))

	out, err := c.GetActiveContracts(context.Background(), "tok", &ActiveContractsQuery{
		Party:  "alice::1220",
		Filter: ByInterface("#splice-api-token-holding-v1:Splice.Api.Token.HoldingV1:Holding"),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "h1", out[0].CreatedEvent.ContractID)
	assert.Equal(t, "h2", out[1].CreatedEvent.ContractID)

	view, ok := out[0].CreatedEvent.InterfaceView("#splice-api-token-holding-v1:Splice.Api.Token.HoldingV1:Holding")
	require.True(t, ok)
	assert.JSONEq(t, `{"amount":"1.0"}`, string(view))

	dc := out[0].Disclosed()
	assert.Equal(t, "blob1", dc.CreatedEventBlob)
	assert.Equal(t, "sync-1", dc.SynchronizerID)

	assert.Equal(t, int64(99), gotReq.ActiveAtOffset)
	require.Contains(t, gotReq.Filter.FiltersByParty, "alice::1220")
	assert.Equal(t, []string{"jwt.token.tok", "daml.ws.auth"}, gotProtocols)
}

func TestClient_GetActiveContracts_SecuritySensitiveError(t *testing.T) {
	var (
		gotReq       activeContractsRequest
		gotProtocols []string
	)
	messages := []string{`{"code":"NA","cause":"A security-sensitive error has been received"}`}
	c := newTestClient(t, acsServer(t, 5, messages, &gotReq, &gotProtocols))

	_, err := c.GetActiveContracts(context.Background(), "tok", &ActiveContractsQuery{
		Party:  "alice",
		Filter: ByTemplate("#pkg:M:T"),
	})
	require.ErrorIs(t, err, ErrSecuritySensitive)
}

func TestClient_GetActiveContracts_EmptyLedger(t *testing.T) {
	var (
		gotReq       activeContractsRequest
		gotProtocols []string
	)
	c := newTestClient(t, acsServer(t, 0, nil, &gotReq, &gotProtocols))

	_, err := c.GetActiveContracts(context.Background(), "tok", &ActiveContractsQuery{
		Party:  "alice",
		Filter: ByTemplate("#pkg:M:T"),
	})
	require.ErrorIs(t, err, ErrEmptyLedger)
}

func TestWebsocketURL(t *testing.T) {
	assert.Equal(t, "wss://p.example.com", websocketURL("https://p.example.com/"))
	assert.Equal(t, "ws://127.0.0.1:7575", websocketURL("http://127.0.0.1:7575"))
}

func TestIdentifierFilterJSON(t *testing.T) {
	b, err := json.Marshal(ByInterface("#a:B:C"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), `{"InterfaceFilter":{"value":{"interfaceId":"#a:B:C"`))
}
