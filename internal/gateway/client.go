// Package gateway provides a gRPC client wrapper for probing a Lightning
// gateway node (the bridge a federation uses to swap HTLCs for e-cash).
//
// fmcd never pays or receives directly through a gateway's own RPC
// surface; that happens inside the opaque federation client
// (internal/fedclient) when a payment is routed through the gateway. This
// package offers a connectivity and liquidity probe only; no other package
// in the module imports it, and gateway selection reads the federation
// client's own Gateway.Available flag.
package gateway

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/lightningnetwork/lnd/lnrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Config describes how to reach one gateway's Lightning node.
type Config struct {
	GRPCHost    string
	GRPCPort    string
	TLSCertPath string
	MacaroonPath string
	ConnectTimeoutSeconds int
}

// Info summarizes a gateway node's liveness and liquidity.
type Info struct {
	Alias         string
	PubKey        string
	SyncedToChain bool
	SyncedToGraph bool
	BlockHeight   uint32
	NumChannels   uint32
}

// Liquidity reports a gateway's channel balance, used to decide whether a
// gateway can plausibly route a given payment amount before it is tried.
type Liquidity struct {
	LocalSats  int64 // our side: what the gateway can source on our behalf
	RemoteSats int64
}

// macaroonCredential attaches the hex-encoded macaroon as gRPC metadata on
// every RPC.
type macaroonCredential struct {
	macaroon string
}

func (m macaroonCredential) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"macaroon": m.macaroon}, nil
}

func (m macaroonCredential) RequireTransportSecurity() bool {
	return true
}

// Client is a thin gRPC handle to one gateway's Lightning node. Gateways are
// keyed by gateway_id at a higher level (the federation client reports which
// gateways it knows); Client only answers "is this one alive, how much can
// it route".
type Client struct {
	conn     *grpc.ClientConn
	lnClient lnrpc.LightningClient
	cfg      Config
}

// NewClient dials a gateway node and fails fast if it cannot be reached.
func NewClient(cfg Config) (*Client, error) {
	creds, err := credentials.NewClientTLSFromFile(cfg.TLSCertPath, "")
	if err != nil {
		return nil, fmt.Errorf("could not load gateway tls cert from %s: %w", cfg.TLSCertPath, err)
	}

	macaroonBytes, err := os.ReadFile(cfg.MacaroonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway macaroon %s: %w", cfg.MacaroonPath, err)
	}
	macaroonCreds := macaroonCredential{macaroon: hex.EncodeToString(macaroonBytes)}

	addr := cfg.GRPCHost + ":" + cfg.GRPCPort
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds), grpc.WithPerRPCCredentials(macaroonCreds))
	if err != nil {
		return nil, fmt.Errorf("could not dial gateway %s: %w", addr, err)
	}

	lnClient := lnrpc.NewLightningClient(conn)

	return &Client{conn: conn, lnClient: lnClient, cfg: cfg}, nil
}

// Close tears down the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// GetInfo reports liveness. A gateway that errors here or returns
// SyncedToChain=false should be treated as GatewayUnavailable by the caller.
func (c *Client) GetInfo(ctx context.Context) (*Info, error) {
	resp, err := c.lnClient.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to get gateway node info: %w", err)
	}

	return &Info{
		Alias:         resp.Alias,
		PubKey:        resp.IdentityPubkey,
		SyncedToChain: resp.SyncedToChain,
		SyncedToGraph: resp.SyncedToGraph,
		BlockHeight:   resp.BlockHeight,
		NumChannels:   resp.NumActiveChannels,
	}, nil
}

// GetLiquidity reports the gateway's current channel balance.
func (c *Client) GetLiquidity(ctx context.Context) (*Liquidity, error) {
	resp, err := c.lnClient.ChannelBalance(ctx, &lnrpc.ChannelBalanceRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to get gateway channel balance: %w", err)
	}

	var localSats, remoteSats int64
	if resp.LocalBalance != nil {
		localSats = int64(resp.LocalBalance.Sat)
	}
	if resp.RemoteBalance != nil {
		remoteSats = int64(resp.RemoteBalance.Sat)
	}

	return &Liquidity{LocalSats: localSats, RemoteSats: remoteSats}, nil
}
