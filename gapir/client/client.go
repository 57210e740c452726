// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package client talks to a remote replay service.
package client

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/golang/protobuf/ptypes/empty"
	"github.com/golang/protobuf/ptypes/wrappers"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/api"
	"github.com/google/gfxreplay/gapis/reference"
	"github.com/google/gfxreplay/gapis/replay"
	"github.com/google/gfxreplay/gapis/service"
)

const (
	// gRPCConnectTimeout is the time allowed to establish a gRPC connection.
	gRPCConnectTimeout = time.Second * 10
	// DefaultHeartbeatInterval is the delay between heartbeat pings.
	DefaultHeartbeatInterval = time.Second * 2
)

// Client is a connection to one replay service.
type Client struct {
	// mutex guards the connection against concurrent shutdown.
	mutex     sync.Mutex
	conn      *grpc.ClientConn
	rpcClient *service.ReplayClient
	authToken string
}

// Connect dials the replay service at target and checks it answers a ping.
func Connect(ctx context.Context, target, authToken string, options ...grpc.DialOption) (*Client, error) {
	ctx = log.Enter(ctx, "Connect")
	options = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(math.MaxInt32)),
	}, options...)
	conn, err := grpc.NewClient(target, options...)
	if err != nil {
		return nil, log.Err(ctx, err, "Creating connection")
	}
	client := &Client{conn: conn, rpcClient: service.NewReplayClient(conn), authToken: authToken}

	log.I(ctx, "Waiting for connection to %v...", target)
	pctx, cancel := context.WithTimeout(ctx, gRPCConnectTimeout)
	defer cancel()
	if err := client.Ping(pctx); err != nil {
		conn.Close()
		return nil, log.Err(ctx, err, "Timeout waiting for connection")
	}
	return client, nil
}

// Close terminates the connection and makes the client invalid.
func (client *Client) Close() error {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	if client.conn == nil {
		return nil
	}
	err := client.conn.Close()
	client.conn, client.rpcClient = nil, nil
	return err
}

func (client *Client) rpc(ctx context.Context) (context.Context, *service.ReplayClient, error) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	if client.rpcClient == nil {
		return ctx, nil, log.Err(ctx, nil, "Client has been shutdown")
	}
	return attachAuthToken(ctx, client.authToken), client.rpcClient, nil
}

// attachAuthToken attaches authentication token to the context as metadata, if
// the authentication token is not empty, and returns the new context. If the
// authentication token is empty, returns the original context.
func attachAuthToken(ctx context.Context, authToken string) context.Context {
	if len(authToken) != 0 {
		return metadata.AppendToOutgoingContext(ctx, service.AuthTokenMetaDataName, authToken)
	}
	return ctx
}

// fromStatus turns a status error back into the sentinel it was built from,
// where there is one.
func fromStatus(err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch s.Code() {
	case codes.NotFound:
		return errors.Wrap(service.ErrUnknownLog, s.Message())
	case codes.Unavailable:
		if s.Message() == replay.ErrBusy.Error() {
			return replay.ErrBusy
		}
	case codes.FailedPrecondition:
		if s.Message() == replay.ErrNotStructured.Error() {
			return replay.ErrNotStructured
		}
	}
	return err
}

// Ping makes sure the service is alive.
func (client *Client) Ping(ctx context.Context) error {
	ctx, rpc, err := client.rpc(ctx)
	if err != nil {
		return err
	}
	r, err := rpc.Ping(ctx, &empty.Empty{})
	if err != nil {
		return log.Err(ctx, fromStatus(err), "Sending ping")
	}
	if r == nil {
		return log.Err(ctx, nil, "No response for ping")
	}
	return nil
}

// Heartbeat pings the service every interval until ctx is cancelled or a
// ping fails, in which case the error is returned.
func (client *Client) Heartbeat(ctx context.Context, interval time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
			if err := client.Ping(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.E(ctx, "Error sending keep-alive ping. Error: %v", err)
				return err
			}
		}
	}
}

// OpenLog uploads the bytes of a log and returns its handle.
func (client *Client) OpenLog(ctx context.Context, data []byte) (service.LogHandle, error) {
	ctx, rpc, err := client.rpc(ctx)
	if err != nil {
		return service.LogHandle{}, err
	}
	res, err := rpc.OpenLog(ctx, &wrappers.BytesValue{Value: data})
	if err != nil {
		return service.LogHandle{}, fromStatus(err)
	}
	return service.ParseHandle(res.GetValue())
}

// CloseLog releases the log h.
func (client *Client) CloseLog(ctx context.Context, h service.LogHandle) error {
	ctx, rpc, err := client.rpc(ctx)
	if err != nil {
		return err
	}
	_, err = rpc.CloseLog(ctx, service.LogRequest(h))
	return fromStatus(err)
}

// RunStructuredPass runs the structured pass of the log h.
func (client *Client) RunStructuredPass(ctx context.Context, h service.LogHandle) (*service.Summary, error) {
	ctx, rpc, err := client.rpc(ctx)
	if err != nil {
		return nil, err
	}
	res, err := rpc.RunStructuredPass(ctx, service.LogRequest(h))
	if err != nil {
		return nil, fromStatus(err)
	}
	return service.DecodeSummary(res)
}

// RunActivePass replays the log h up to and including target.
func (client *Client) RunActivePass(ctx context.Context, h service.LogHandle, target uint64) (replay.Cursor, error) {
	ctx, rpc, err := client.rpc(ctx)
	if err != nil {
		return replay.Cursor{}, err
	}
	res, err := rpc.RunActivePass(ctx, service.ActivePassRequest(h, target))
	if err != nil {
		return replay.Cursor{}, fromStatus(err)
	}
	return service.DecodeCursor(res)
}

// RunActiveFullPass replays the whole log h.
func (client *Client) RunActiveFullPass(ctx context.Context, h service.LogHandle) (replay.Cursor, error) {
	ctx, rpc, err := client.rpc(ctx)
	if err != nil {
		return replay.Cursor{}, err
	}
	res, err := rpc.RunActiveFullPass(ctx, service.LogRequest(h))
	if err != nil {
		return replay.Cursor{}, fromStatus(err)
	}
	return service.DecodeCursor(res)
}

// GetResourceUsage returns how the events in [from, to] of the log h used
// each identity.
func (client *Client) GetResourceUsage(ctx context.Context, h service.LogHandle, from, to uint64) ([]reference.Usage, error) {
	ctx, rpc, err := client.rpc(ctx)
	if err != nil {
		return nil, err
	}
	res, err := rpc.GetResourceUsage(ctx, service.UsageRequest(h, from, to))
	if err != nil {
		return nil, fromStatus(err)
	}
	return service.DecodeUsage(res)
}

// Requirements returns the capabilities the log h needs.
func (client *Client) Requirements(ctx context.Context, h service.LogHandle) ([]api.Requirement, error) {
	ctx, rpc, err := client.rpc(ctx)
	if err != nil {
		return nil, err
	}
	res, err := rpc.Requirements(ctx, service.LogRequest(h))
	if err != nil {
		return nil, fromStatus(err)
	}
	return service.DecodeRequirements(res)
}
