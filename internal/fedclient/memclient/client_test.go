package memclient

import (
	"context"
	"testing"

	"fmcd/internal/fedclient"
	"fmcd/internal/ids"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateInvoiceAndReceiveLifecycle(t *testing.T) {
	fid := ids.FederationId{}
	c := New(fid)

	opID, invoice, err := c.Lightning().CreateInvoice(context.Background(), 50000, "t", nil, "gw1")
	require.NoError(t, err)
	assert.NotEmpty(t, invoice)

	stream, err := c.Lightning().SubscribeReceive(context.Background(), opID)
	require.NoError(t, err)

	_, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "no state pushed yet")

	c.PushReceiveState(opID, fedclient.LnReceiveState{Kind: fedclient.LnReceiveClaimed, AmountReceivedMsat: 50000})

	state, ok, err := stream.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fedclient.LnReceiveClaimed, state.Kind)
	assert.True(t, state.Kind.Terminal())
}

func TestClient_SelectGateway(t *testing.T) {
	c := New(ids.FederationId{})
	c.SeedGateway(fedclient.Gateway{ID: "gw1", Available: true, LocalSats: 100})

	gw, ok, err := c.Lightning().SelectGateway(context.Background(), "gw1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(100), gw.LocalSats)

	_, ok, err = c.Lightning().SelectGateway(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_OperationLogRecentOrdersNewestFirst(t *testing.T) {
	c := New(ids.FederationId{})
	c.SeedLoggedOperation(fedclient.LoggedOperation{OperationID: "op1", ModuleKind: "wallet"})
	c.SeedLoggedOperation(fedclient.LoggedOperation{OperationID: "op2", ModuleKind: "ln"})

	recent, err := c.OperationLog().Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids.OperationId("op2"), recent[0].OperationID)
	assert.Equal(t, ids.OperationId("op1"), recent[1].OperationID)
}

func TestClient_WalletBalance(t *testing.T) {
	c := New(ids.FederationId{})
	c.SetWalletBalanceSat(123456)

	bal, err := c.Wallet().SpendableBalanceSat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), bal)
}
