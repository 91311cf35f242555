package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

type mockLNClient struct {
	lnrpc.LightningClient

	getInfoFn         func(ctx context.Context, in *lnrpc.GetInfoRequest, opts ...grpc.CallOption) (*lnrpc.GetInfoResponse, error)
	channelBalanceFn  func(ctx context.Context, in *lnrpc.ChannelBalanceRequest, opts ...grpc.CallOption) (*lnrpc.ChannelBalanceResponse, error)
}

func (m *mockLNClient) GetInfo(ctx context.Context, in *lnrpc.GetInfoRequest, opts ...grpc.CallOption) (*lnrpc.GetInfoResponse, error) {
	return m.getInfoFn(ctx, in, opts...)
}

func (m *mockLNClient) ChannelBalance(ctx context.Context, in *lnrpc.ChannelBalanceRequest, opts ...grpc.CallOption) (*lnrpc.ChannelBalanceResponse, error) {
	return m.channelBalanceFn(ctx, in, opts...)
}

func newTestClient(mock *mockLNClient) *Client {
	return &Client{lnClient: mock, cfg: Config{}}
}

func TestGetInfo_Success(t *testing.T) {
	mock := &mockLNClient{
		getInfoFn: func(_ context.Context, _ *lnrpc.GetInfoRequest, _ ...grpc.CallOption) (*lnrpc.GetInfoResponse, error) {
			return &lnrpc.GetInfoResponse{
				Alias:             "gateway-01",
				IdentityPubkey:    "03abc",
				SyncedToChain:     true,
				SyncedToGraph:     true,
				BlockHeight:       900000,
				NumActiveChannels: 12,
			}, nil
		},
	}

	c := newTestClient(mock)
	info, err := c.GetInfo(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "gateway-01", info.Alias)
	assert.True(t, info.SyncedToChain)
	assert.Equal(t, uint32(12), info.NumChannels)
}

func TestGetInfo_Error(t *testing.T) {
	mock := &mockLNClient{
		getInfoFn: func(_ context.Context, _ *lnrpc.GetInfoRequest, _ ...grpc.CallOption) (*lnrpc.GetInfoResponse, error) {
			return nil, errors.New("connection refused")
		},
	}

	c := newTestClient(mock)
	info, err := c.GetInfo(context.Background())

	assert.Nil(t, info)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetLiquidity_NilBalances(t *testing.T) {
	mock := &mockLNClient{
		channelBalanceFn: func(_ context.Context, _ *lnrpc.ChannelBalanceRequest, _ ...grpc.CallOption) (*lnrpc.ChannelBalanceResponse, error) {
			return &lnrpc.ChannelBalanceResponse{}, nil
		},
	}

	c := newTestClient(mock)
	liq, err := c.GetLiquidity(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(0), liq.LocalSats)
	assert.Equal(t, int64(0), liq.RemoteSats)
}

func TestGetLiquidity_Success(t *testing.T) {
	mock := &mockLNClient{
		channelBalanceFn: func(_ context.Context, _ *lnrpc.ChannelBalanceRequest, _ ...grpc.CallOption) (*lnrpc.ChannelBalanceResponse, error) {
			return &lnrpc.ChannelBalanceResponse{
				LocalBalance:  &lnrpc.Amount{Sat: 750000},
				RemoteBalance: &lnrpc.Amount{Sat: 250000},
			}, nil
		},
	}

	c := newTestClient(mock)
	liq, err := c.GetLiquidity(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(750000), liq.LocalSats)
	assert.Equal(t, int64(250000), liq.RemoteSats)
}
