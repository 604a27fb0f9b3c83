// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fragwuerdig/cw20-taxed/host"
	"github.com/fragwuerdig/cw20-taxed/journal"
	"github.com/fragwuerdig/cw20-taxed/ledger"
	"github.com/fragwuerdig/cw20-taxed/lib/addr"
	"github.com/fragwuerdig/cw20-taxed/lib/clock"
	"github.com/fragwuerdig/cw20-taxed/lib/codec"
	"github.com/fragwuerdig/cw20-taxed/lib/schema"
	"github.com/fragwuerdig/cw20-taxed/lib/service"
	"github.com/fragwuerdig/cw20-taxed/lib/version"
	"github.com/fragwuerdig/cw20-taxed/snapshot"
)

// ledgerState is the store surface the daemon needs: direct reads for
// status and snapshots plus the transaction boundary the host runs
// operations through.
type ledgerState interface {
	ledger.Store
	ledger.Transactor
}

// TokenService is the core daemon state shared by all socket actions.
type TokenService struct {
	host    *host.Host
	store   ledgerState
	journal *journal.Writer
	clock   clock.Clock
	logger  *slog.Logger

	startedAt          time.Time
	snapshotDir        string
	snapshotRecipients []string

	// executeMu extends the host's operation ordering across the
	// journal append, so journal heights are monotonic, and across
	// snapshot writes, so a snapshot's digest matches its reported
	// height exactly.
	executeMu sync.Mutex
}

// registerActions registers the daemon's socket actions on the server.
func (s *TokenService) registerActions(server *service.SocketServer) {
	server.Handle("execute", s.handleExecute)
	server.Handle("query", s.handleQuery)
	server.Handle("status", s.handleStatus)
	server.Handle("snapshot", s.handleSnapshot)
}

// handleExecute runs one token operation as the request's caller. The
// operation commits before the journal append; a failed append is
// logged but does not undo committed state.
func (s *TokenService) handleExecute(ctx context.Context, raw []byte) (any, error) {
	var request schema.ExecuteRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding execute request: %w", err)
	}
	caller, err := addr.Parse(request.Caller)
	if err != nil {
		return nil, fmt.Errorf("caller: %w", err)
	}
	if request.Msg == nil {
		return nil, fmt.Errorf("msg is required")
	}

	requestID := request.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := s.logger.With("request_id", requestID)

	s.executeMu.Lock()
	defer s.executeMu.Unlock()

	now := s.clock.Now().UTC()
	result, err := s.host.Execute(ctx, caller, request.Msg)
	if err != nil {
		logger.Debug("execute refused", "caller", request.Caller, "error", err)
		return nil, err
	}
	height := s.host.Height()

	sequence, err := s.journal.Append(journal.Record{
		Height:     height,
		Time:       now,
		Caller:     caller,
		Msg:        *request.Msg,
		Attributes: journal.Attributes(result.Attributes),
	})
	if err != nil {
		logger.Error("journal append failed", "height", height, "error", err)
	}

	logger.Info("executed",
		"caller", request.Caller,
		"action", actionOf(result.Attributes),
		"height", height,
	)

	attributes := make([]schema.Attribute, len(result.Attributes))
	for i, a := range result.Attributes {
		attributes[i] = schema.Attribute{Key: a.Key, Value: a.Value}
	}
	return schema.ExecuteResponse{Height: height, Sequence: sequence, Attributes: attributes}, nil
}

// actionOf picks the action attribute out of an operation's result.
func actionOf(attributes []ledger.Attribute) string {
	for _, attribute := range attributes {
		if attribute.Key == "action" {
			return attribute.Value
		}
	}
	return ""
}

// handleQuery answers one read-only query from a state snapshot.
func (s *TokenService) handleQuery(ctx context.Context, raw []byte) (any, error) {
	var request schema.QueryRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding query request: %w", err)
	}
	if request.Query == nil {
		return nil, fmt.Errorf("query is required")
	}
	return s.host.Query(ctx, request.Query)
}

// handleStatus reports height, supply, and the state digest. The
// digest walks the full state, which is what makes it comparable
// against a snapshot file's trailer.
func (s *TokenService) handleStatus(ctx context.Context, _ []byte) (any, error) {
	var supply string
	var digest snapshot.Digest
	err := s.store.View(ctx, func(st ledger.Store) error {
		info, ok, err := st.TokenInfo()
		if err != nil {
			return fmt.Errorf("reading token metadata: %w", err)
		}
		if ok {
			supply = info.TotalSupply.String()
		}
		digest, err = snapshot.StateDigest(st)
		return err
	})
	if err != nil {
		return nil, err
	}

	return schema.StatusResponse{
		Height:        s.host.Height(),
		TotalSupply:   supply,
		StateDigest:   digest.String(),
		UptimeSeconds: s.clock.Now().Sub(s.startedAt).Seconds(),
		Version:       version.Info(),
	}, nil
}

// handleSnapshot exports the full state to a file on the daemon host.
func (s *TokenService) handleSnapshot(ctx context.Context, raw []byte) (any, error) {
	var request schema.SnapshotRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding snapshot request: %w", err)
	}
	path, digest, height, err := s.writeSnapshot(ctx, request.Path, request.Recipients)
	if err != nil {
		return nil, err
	}
	return schema.SnapshotResponse{Path: path, StateDigest: digest.String(), Height: height}, nil
}

// writeSnapshot exports the state under the execute lock, so the
// reported height is exactly the state the file contains. Executes
// queue behind the export.
func (s *TokenService) writeSnapshot(ctx context.Context, path string, recipients []string) (string, snapshot.Digest, uint64, error) {
	s.executeMu.Lock()
	defer s.executeMu.Unlock()

	height := s.host.Height()
	if path == "" {
		path = filepath.Join(s.snapshotDir, fmt.Sprintf("snapshot-%020d.snap", height))
	}
	if recipients == nil {
		recipients = s.snapshotRecipients
	}

	var digest snapshot.Digest
	err := s.store.View(ctx, func(st ledger.Store) error {
		var werr error
		digest, werr = snapshot.WriteFile(path, st, snapshot.ExportOptions{Recipients: recipients})
		return werr
	})
	if err != nil {
		return "", snapshot.Digest{}, 0, err
	}

	s.logger.Info("snapshot written",
		"path", path,
		"state_digest", digest.String(),
		"height", height,
	)
	return path, digest, height, nil
}

// snapshotLoop writes a snapshot into the configured directory every
// interval until the context ends.
func (s *TokenService) snapshotLoop(ctx context.Context, interval time.Duration) {
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, _, err := s.writeSnapshot(ctx, "", nil); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		}
	}
}
