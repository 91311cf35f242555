// Package memclient is a reference in-memory implementation of
// fmcd/internal/fedclient's contract. It is not part of the core's
// production path. It exists so the payment lifecycle manager, the
// monitors, and the AppState facade can be exercised in tests without a
// real federation backend.
package memclient

import (
	"context"
	"sync"

	"fmcd/internal/fedclient"
	"fmcd/internal/ids"

	"github.com/google/uuid"
)

// Client is an in-memory fedclient.Client. Tests construct one, optionally
// seed it with gateways/balances, and drive operations forward by pushing
// states onto the streams returned from Subscribe*.
type Client struct {
	federationID ids.FederationId

	mu       sync.Mutex
	gateways map[string]fedclient.Gateway

	mintBalanceMsat  uint64
	walletBalanceSat uint64
	withdrawFeeSat   uint64

	lnReceiveStreams map[ids.OperationId]*stream[fedclient.LnReceiveState]
	lnPayStreams     map[ids.OperationId]*stream[fedclient.LnPayState]
	depositStreams   map[ids.OperationId]*stream[fedclient.OnchainDepositState]
	withdrawStreams  map[ids.OperationId]*stream[fedclient.OnchainWithdrawState]

	loggedOps []fedclient.LoggedOperation
}

// New constructs an empty in-memory client for federationID.
func New(federationID ids.FederationId) *Client {
	return &Client{
		federationID:     federationID,
		gateways:         make(map[string]fedclient.Gateway),
		lnReceiveStreams: make(map[ids.OperationId]*stream[fedclient.LnReceiveState]),
		lnPayStreams:     make(map[ids.OperationId]*stream[fedclient.LnPayState]),
		depositStreams:   make(map[ids.OperationId]*stream[fedclient.OnchainDepositState]),
		withdrawStreams:  make(map[ids.OperationId]*stream[fedclient.OnchainWithdrawState]),
	}
}

func (c *Client) FederationID() ids.FederationId    { return c.federationID }
func (c *Client) Lightning() fedclient.LightningModule { return (*lightningModule)(c) }
func (c *Client) Wallet() fedclient.WalletModule       { return (*walletModule)(c) }
func (c *Client) Mint() fedclient.MintModule           { return (*mintModule)(c) }
func (c *Client) OperationLog() fedclient.OperationLog { return (*operationLog)(c) }

// SeedGateway registers a gateway for SelectGateway/ListGateways to find.
func (c *Client) SeedGateway(gw fedclient.Gateway) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gateways[gw.ID] = gw
}

// SetMintBalanceMsat sets the balance BalanceMsat/Summary report.
func (c *Client) SetMintBalanceMsat(msat uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mintBalanceMsat = msat
}

// SetWalletBalanceSat sets the balance SpendableBalanceSat reports.
func (c *Client) SetWalletBalanceSat(sat uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.walletBalanceSat = sat
}

// SetWithdrawFeeSat sets the fee EstimateWithdrawFeeSat reports.
func (c *Client) SetWithdrawFeeSat(sat uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.withdrawFeeSat = sat
}

// SeedLoggedOperation appends an entry the OperationLog will report,
// newest-last (Recent reverses it).
func (c *Client) SeedLoggedOperation(op fedclient.LoggedOperation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOps = append(c.loggedOps, op)
}

// PushReceiveState pushes a state update onto operationID's receive
// stream, creating the stream if it does not exist yet.
func (c *Client) PushReceiveState(operationID ids.OperationId, state fedclient.LnReceiveState) {
	c.mu.Lock()
	s, ok := c.lnReceiveStreams[operationID]
	if !ok {
		s = newStream[fedclient.LnReceiveState]()
		c.lnReceiveStreams[operationID] = s
	}
	c.mu.Unlock()
	s.push(state)
}

// PushPayState is the LnPayState analogue of PushReceiveState.
func (c *Client) PushPayState(operationID ids.OperationId, state fedclient.LnPayState) {
	c.mu.Lock()
	s, ok := c.lnPayStreams[operationID]
	if !ok {
		s = newStream[fedclient.LnPayState]()
		c.lnPayStreams[operationID] = s
	}
	c.mu.Unlock()
	s.push(state)
}

// PushDepositState is the OnchainDepositState analogue of
// PushReceiveState.
func (c *Client) PushDepositState(operationID ids.OperationId, state fedclient.OnchainDepositState) {
	c.mu.Lock()
	s, ok := c.depositStreams[operationID]
	if !ok {
		s = newStream[fedclient.OnchainDepositState]()
		c.depositStreams[operationID] = s
	}
	c.mu.Unlock()
	s.push(state)
}

// PushWithdrawState is the OnchainWithdrawState analogue of
// PushReceiveState.
func (c *Client) PushWithdrawState(operationID ids.OperationId, state fedclient.OnchainWithdrawState) {
	c.mu.Lock()
	s, ok := c.withdrawStreams[operationID]
	if !ok {
		s = newStream[fedclient.OnchainWithdrawState]()
		c.withdrawStreams[operationID] = s
	}
	c.mu.Unlock()
	s.push(state)
}

type lightningModule Client

func (m *lightningModule) CreateInvoice(_ context.Context, amountMsat uint64, description string, _ *uint64, _ string) (ids.OperationId, string, error) {
	opID := ids.OperationId(uuid.NewString())
	invoice := "lnbc" + description // placeholder bolt11-shaped string for the in-memory double
	_ = amountMsat
	return opID, invoice, nil
}

func (m *lightningModule) Pay(_ context.Context, _ string, _ *uint64, _ string) (ids.OperationId, error) {
	return ids.OperationId(uuid.NewString()), nil
}

func (m *lightningModule) SubscribeReceive(_ context.Context, operationID ids.OperationId) (fedclient.StateStream[fedclient.LnReceiveState], error) {
	c := (*Client)(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.lnReceiveStreams[operationID]
	if !ok {
		s = newStream[fedclient.LnReceiveState]()
		c.lnReceiveStreams[operationID] = s
	}
	return s, nil
}

func (m *lightningModule) SubscribePay(_ context.Context, operationID ids.OperationId) (fedclient.StateStream[fedclient.LnPayState], error) {
	c := (*Client)(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.lnPayStreams[operationID]
	if !ok {
		s = newStream[fedclient.LnPayState]()
		c.lnPayStreams[operationID] = s
	}
	return s, nil
}

func (m *lightningModule) SelectGateway(_ context.Context, gatewayID string) (fedclient.Gateway, bool, error) {
	c := (*Client)(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	gw, ok := c.gateways[gatewayID]
	return gw, ok, nil
}

func (m *lightningModule) ListGateways(_ context.Context) ([]fedclient.Gateway, error) {
	c := (*Client)(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]fedclient.Gateway, 0, len(c.gateways))
	for _, gw := range c.gateways {
		out = append(out, gw)
	}
	return out, nil
}

func (m *lightningModule) UpdateGatewayCache(_ context.Context) error {
	return nil
}

type walletModule Client

func (m *walletModule) AllocateDepositAddress(_ context.Context) (string, ids.OperationId, uint64, error) {
	opID := ids.OperationId(uuid.NewString())
	return "bcrt1q" + opID.String()[:8], opID, 0, nil
}

func (m *walletModule) Withdraw(_ context.Context, _ string, _ uint64, _ bool) (ids.OperationId, error) {
	return ids.OperationId(uuid.NewString()), nil
}

func (m *walletModule) SubscribeDeposit(_ context.Context, operationID ids.OperationId) (fedclient.StateStream[fedclient.OnchainDepositState], error) {
	c := (*Client)(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.depositStreams[operationID]
	if !ok {
		s = newStream[fedclient.OnchainDepositState]()
		c.depositStreams[operationID] = s
	}
	return s, nil
}

func (m *walletModule) SubscribeWithdraw(_ context.Context, operationID ids.OperationId) (fedclient.StateStream[fedclient.OnchainWithdrawState], error) {
	c := (*Client)(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.withdrawStreams[operationID]
	if !ok {
		s = newStream[fedclient.OnchainWithdrawState]()
		c.withdrawStreams[operationID] = s
	}
	return s, nil
}

func (m *walletModule) EstimateWithdrawFeeSat(_ context.Context, _ string, _ uint64) (uint64, error) {
	c := (*Client)(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.withdrawFeeSat, nil
}

func (m *walletModule) SpendableBalanceSat(_ context.Context) (uint64, error) {
	c := (*Client)(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.walletBalanceSat, nil
}

type mintModule Client

func (m *mintModule) BalanceMsat(_ context.Context) (uint64, error) {
	c := (*Client)(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mintBalanceMsat, nil
}

func (m *mintModule) Summary(_ context.Context) (fedclient.InfoResponse, error) {
	c := (*Client)(m)
	c.mu.Lock()
	defer c.mu.Unlock()
	return fedclient.InfoResponse{
		Network:         "regtest",
		Meta:            map[string]string{},
		TotalAmountMsat: c.mintBalanceMsat,
	}, nil
}

type operationLog Client

func (l *operationLog) Recent(_ context.Context, limit int) ([]fedclient.LoggedOperation, error) {
	c := (*Client)(l)
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.loggedOps)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]fedclient.LoggedOperation, n)
	for i := 0; i < n; i++ {
		out[i] = c.loggedOps[len(c.loggedOps)-1-i]
	}
	return out, nil
}
