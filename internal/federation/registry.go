package federation

import (
	"context"
	"fmt"
	"sync"

	"fmcd/internal/errors"
	"fmcd/internal/fedclient"
	"fmcd/internal/ids"

	"go.uber.org/zap"

	"fmcd/pkg/logger"
)

// InviteCodeParser turns an operator-supplied invite code into the
// FederationId it names. The real parsing/validation of a federation
// invite code is owned by the federation-client library; the
// registry only needs the resulting id before it can check for an
// existing client.
type InviteCodeParser func(inviteCode string) (ids.FederationId, error)

// ClientFactory constructs a federation client for federationID using a
// secret derived from the shared mnemonic, and the original invite code
// (needed to actually dial the federation's guardians). Construction must
// not return a partially-initialized client: either it fully succeeds or
// it returns an error.
type ClientFactory func(ctx context.Context, federationID ids.FederationId, secret [32]byte, inviteCode string) (fedclient.Client, error)

// Handle is the registry's record for one joined federation: the
// federation client plus the invite code it was constructed from.
type Handle struct {
	Client     fedclient.Client
	InviteCode string
}

// Registry owns the in-memory collection of federation clients, their
// construction, and lookup by id or id prefix.
type Registry struct {
	store        *Store
	mnemonic     string
	parseInvite  InviteCodeParser
	newClient    ClientFactory

	mu       sync.RWMutex
	handles  map[ids.FederationId]*Handle
	pending  map[ids.FederationId]chan struct{}
}

// NewRegistry constructs a Registry backed by store, using mnemonic to
// derive every client's federation-scoped secret. It loads every
// previously persisted invite code and reconstructs a client for each,
// logging and skipping (never failing the whole startup) for sources that
// can no longer be reached, matching UpdateGatewayCaches.s
// best-effort-per-client stance applied at construction time too.
func NewRegistry(ctx context.Context, store *Store, mnemonic string, parseInvite InviteCodeParser, newClient ClientFactory) (*Registry, error) {
	r := &Registry{
		store:       store,
		mnemonic:    mnemonic,
		parseInvite: parseInvite,
		newClient:   newClient,
		handles:     make(map[ids.FederationId]*Handle),
		pending:     make(map[ids.FederationId]chan struct{}),
	}

	persisted, err := store.InviteCodes()
	if err != nil {
		return nil, err
	}

	for fidHex, inviteCode := range persisted {
		fid, err := ids.FederationIdFromHex(fidHex)
		if err != nil {
			logger.Warn("skipping unparseable persisted federation id", zap.String("federation_id_hex", fidHex), zap.Error(err))
			continue
		}

		secret, err := DeriveFederationSecret(mnemonic, fid)
		if err != nil {
			logger.Warn("failed to derive federation secret during restore", zap.String("federation_id", fid.String()), zap.Error(err))
			continue
		}

		client, err := newClient(ctx, fid, secret, inviteCode)
		if err != nil {
			logger.Warn("failed to reconstruct federation client on startup", zap.String("federation_id", fid.String()), zap.Error(err))
			continue
		}

		r.handles[fid] = &Handle{Client: client, InviteCode: inviteCode}
	}

	return r, nil
}

// RegisterNew joins a federation from inviteCode. If the federation is
// already registered, the existing handle is returned (idempotent re-join,
// no duplicate persisted entry, no second client constructed). Concurrent
// callers registering the same federation deduplicate: only the first
// constructs a client, the rest wait for it and share the result.
func (r *Registry) RegisterNew(ctx context.Context, inviteCode string) (*Handle, *errors.AppError) {
	fid, err := r.parseInvite(inviteCode)
	if err != nil {
		return nil, errors.ValidationErrorf("invalid invite code: %v", err)
	}

	if handle, ok := r.get(fid); ok {
		return handle, nil
	}

	r.mu.Lock()
	if handle, ok := r.handles[fid]; ok {
		r.mu.Unlock()
		return handle, nil
	}
	if wait, inFlight := r.pending[fid]; inFlight {
		r.mu.Unlock()
		<-wait
		if handle, ok := r.get(fid); ok {
			return handle, nil
		}
		return nil, errors.New(errors.FederationUnavailable, "federation construction by a concurrent caller did not complete")
	}
	done := make(chan struct{})
	r.pending[fid] = done
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, fid)
		r.mu.Unlock()
		close(done)
	}()

	secret, err := DeriveFederationSecret(r.mnemonic, fid)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to derive federation secret").WithCause(err)
	}

	client, err := r.newClient(ctx, fid, secret, inviteCode)
	if err != nil {
		return nil, errors.New(errors.FederationUnavailable, fmt.Sprintf("could not contact federation %s", fid)).WithCause(err)
	}

	if err := r.store.SaveInviteCode(fid.String(), inviteCode); err != nil {
		return nil, errors.New(errors.DatabaseError, "failed to persist invite code").WithCause(err)
	}

	handle := &Handle{Client: client, InviteCode: inviteCode}
	r.mu.Lock()
	r.handles[fid] = handle
	r.mu.Unlock()

	return handle, nil
}

// Get performs a constant-time lookup, returning the handle or ok=false.
func (r *Registry) Get(federationID ids.FederationId) (*Handle, bool) {
	return r.get(federationID)
}

func (r *Registry) get(federationID ids.FederationId) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[federationID]
	return h, ok
}

// GetByPrefix performs a linear scan for exactly one FederationId matching
// prefix. Zero matches is a NotFound error; more than one match is a
// Conflict error; ties are never broken.
func (r *Registry) GetByPrefix(prefix []byte) (*Handle, *errors.AppError) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var match *Handle
	var matchCount int
	for fid, h := range r.handles {
		if fid.HasPrefix(prefix) {
			matchCount++
			match = h
		}
	}

	switch matchCount {
	case 0:
		return nil, errors.NotFoundf("no federation matches the given prefix")
	case 1:
		return match, nil
	default:
		return nil, errors.New(errors.Conflict, "federation id prefix is ambiguous")
	}
}

// IDs returns a snapshot of every currently registered FederationId.
func (r *Registry) IDs() []ids.FederationId {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ids.FederationId, 0, len(r.handles))
	for fid := range r.handles {
		out = append(out, fid)
	}
	return out
}

// UpdateGatewayCaches refreshes every client's known-gateway cache on a
// best-effort basis: a single client's failure is logged and skipped, and
// never fails the whole call.
func (r *Registry) UpdateGatewayCaches(ctx context.Context) {
	r.mu.RLock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	for _, h := range handles {
		if err := h.Client.Lightning().UpdateGatewayCache(ctx); err != nil {
			logger.Warn("failed to refresh gateway cache",
				zap.String("federation_id", h.Client.FederationID().String()),
				zap.Error(err))
		}
	}
}
