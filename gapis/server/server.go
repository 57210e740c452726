// Copyright (C) 2026 Google Inc.
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

// Package server serves the replay service over gRPC.
package server

import (
	"context"
	"crypto/subtle"
	"math"
	"net"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/ptypes/empty"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/golang/protobuf/ptypes/wrappers"
	"github.com/pkg/errors"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/google/gfxreplay/core/log"
	"github.com/google/gfxreplay/gapis/chunk"
	"github.com/google/gfxreplay/gapis/config"
	"github.com/google/gfxreplay/gapis/replay"
	"github.com/google/gfxreplay/gapis/service"
)

// Config is the configuration of a replay server.
type Config struct {
	// AuthToken, when set, must accompany every request.
	AuthToken string
	// MaxConnections limits the simultaneous connections. Zero is no limit.
	MaxConnections int
	// IdleTimeout stops the server after that long without requests. Zero
	// disables it.
	IdleTimeout time.Duration
}

// ConfigFrom returns the server configuration of a config document.
func ConfigFrom(c *config.Config) Config {
	return Config{
		AuthToken:      c.Server.AuthToken,
		MaxConnections: c.Server.MaxConnections,
		IdleTimeout:    c.Server.IdleTimeout,
	}
}

// Listen serves svc on addr until ctx is cancelled.
// This is a blocking call.
func Listen(ctx context.Context, addr string, svc *service.Service, cfg Config) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return log.Errf(ctx, err, "Could not start grpc server at %v", addr)
	}
	return Serve(ctx, listener, svc, cfg, nil)
}

// Serve serves svc on l until ctx is cancelled. If started is not nil, the
// grpc server is sent to it once the service is registered.
// This is a blocking call.
func Serve(ctx context.Context, l net.Listener, svc *service.Service, cfg Config, started chan<- *grpc.Server) error {
	if cfg.MaxConnections > 0 {
		l = netutil.LimitListener(l, cfg.MaxConnections)
	}
	defer l.Close()

	s := &grpcServer{svc: svc, keepAlive: make(chan struct{}, 1)}
	server := grpc.NewServer(
		grpc.MaxRecvMsgSize(math.MaxInt32),
		grpc.ChainUnaryInterceptor(logInterceptor(ctx), authInterceptor(cfg.AuthToken)),
	)
	service.RegisterReplayServer(server, s)
	if started != nil {
		started <- server
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			server.GracefulStop()
		case <-stop:
		}
	}()
	if cfg.IdleTimeout != 0 {
		go s.stopIfIdle(ctx, server, cfg.IdleTimeout, stop)
	}

	log.I(ctx, "Starting grpc server on %v", l.Addr())
	if err := server.Serve(l); err != nil {
		return log.Errf(ctx, err, "Abort running grpc server: %v", l.Addr())
	}
	log.I(ctx, "Shutting down grpc server")
	svc.Shutdown(ctx)
	return nil
}

// logInterceptor routes the logs of each request to the handler of ctx.
func logInterceptor(ctx context.Context) grpc.UnaryServerInterceptor {
	handler, filter := log.GetHandler(ctx), log.GetFilter(ctx)
	return func(rctx context.Context, req interface{}, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (interface{}, error) {
		rctx = log.PutFilter(log.PutHandler(rctx, handler), filter)
		return next(log.Enter(rctx, info.FullMethod), req)
	}
}

// authInterceptor rejects requests that do not carry token.
func authInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if token != "" {
			md, _ := metadata.FromIncomingContext(ctx)
			got := md.Get(service.AuthTokenMetaDataName)
			if len(got) != 1 || subtle.ConstantTimeCompare([]byte(got[0]), []byte(token)) != 1 {
				return nil, status.Error(codes.Unauthenticated, "invalid auth token")
			}
		}
		return handler(ctx, req)
	}
}

type grpcServer struct {
	svc          *service.Service
	keepAlive    chan struct{}
	inFlightRPCs int32
}

// inRPC should be called at the start of an RPC call. The returned function
// should be called when the RPC call finishes.
func (s *grpcServer) inRPC() func() {
	atomic.AddInt32(&s.inFlightRPCs, 1)
	select {
	case s.keepAlive <- struct{}{}:
	default:
	}
	return func() {
		select {
		case s.keepAlive <- struct{}{}:
		default:
		}
		atomic.AddInt32(&s.inFlightRPCs, -1)
	}
}

// stopIfIdle calls GracefulStop on server if there are no requests within
// idleTimeout. The timeout is checked in twelve steps so that a suspended
// machine does not stop the server on wake up.
func (s *grpcServer) stopIfIdle(ctx context.Context, server *grpc.Server, idleTimeout time.Duration, stop <-chan struct{}) {
	waitTime := idleTimeout / 12
	var idleTime time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-time.After(waitTime):
			if atomic.LoadInt32(&s.inFlightRPCs) != 0 {
				continue
			}
			idleTime += waitTime
			if idleTime >= idleTimeout {
				log.W(ctx, "Stopping server: no requests for %v", idleTime)
				server.GracefulStop()
				return
			}
		case <-s.keepAlive:
			idleTime = 0
		}
	}
}

// toStatus returns err as a grpc status error.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var failure *replay.Error
	code := codes.Internal
	switch {
	case errors.Is(err, service.ErrUnknownLog):
		code = codes.NotFound
	case errors.As(err, &failure):
		code = codes.Aborted
	case errors.Is(err, service.ErrBadMessage),
		errors.Is(err, chunk.ErrCorruptChunk),
		errors.Is(err, chunk.ErrBadMagic),
		errors.Is(err, chunk.ErrUnsupportedVersion):
		code = codes.InvalidArgument
	case errors.Is(err, replay.ErrBusy):
		code = codes.Unavailable
	case errors.Is(err, replay.ErrNotStructured), errors.Is(err, replay.ErrClosed):
		code = codes.FailedPrecondition
	case errors.Is(err, chunk.ErrEventOutOfRange):
		code = codes.OutOfRange
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		log.W(ctx, "Internal error: %v", err)
	}
	return status.Error(code, err.Error())
}

func (s *grpcServer) Ping(ctx context.Context, req *empty.Empty) (*empty.Empty, error) {
	defer s.inRPC()()
	return &empty.Empty{}, nil
}

func (s *grpcServer) OpenLog(ctx context.Context, req *wrappers.BytesValue) (*wrappers.StringValue, error) {
	defer s.inRPC()()
	h, err := s.svc.OpenLog(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &wrappers.StringValue{Value: h.String()}, nil
}

func (s *grpcServer) CloseLog(ctx context.Context, req *structpb.Struct) (*empty.Empty, error) {
	defer s.inRPC()()
	h, err := service.DecodeLog(req)
	if err == nil {
		err = s.svc.CloseLog(ctx, h)
	}
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &empty.Empty{}, nil
}

func (s *grpcServer) RunStructuredPass(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.inRPC()()
	h, err := service.DecodeLog(req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	st, err := s.svc.RunStructuredPass(ctx, h)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return service.EncodeSummary(service.Summarize(st)), nil
}

func (s *grpcServer) RunActivePass(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.inRPC()()
	h, target, err := service.DecodeActivePass(req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	c, err := s.svc.RunActivePass(ctx, h, target)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return service.EncodeCursor(c), nil
}

func (s *grpcServer) RunActiveFullPass(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.inRPC()()
	h, err := service.DecodeLog(req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	c, err := s.svc.RunActiveFullPass(ctx, h)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return service.EncodeCursor(c), nil
}

func (s *grpcServer) GetResourceUsage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.inRPC()()
	h, from, to, err := service.DecodeUsageRequest(req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	usage, err := s.svc.GetResourceUsage(ctx, h, from, to)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return service.EncodeUsage(usage), nil
}

func (s *grpcServer) Requirements(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	defer s.inRPC()()
	h, err := service.DecodeLog(req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	reqs, err := s.svc.Requirements(ctx, h)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return service.EncodeRequirements(reqs), nil
}
