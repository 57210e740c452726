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

package service

import (
	"context"

	"github.com/golang/protobuf/ptypes/empty"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/golang/protobuf/ptypes/wrappers"
	"google.golang.org/grpc"
)

// ServiceName is the gRPC name of the replay service.
const ServiceName = "gfxreplay.service.Replay"

// AuthTokenMetaDataName is the key of the request metadata pair holding the
// authentication token.
const AuthTokenMetaDataName = "gfxreplay-auth-token"

// ReplayServer is the server API of the replay service. Messages are
// well-known protobuf types; the struct messages are built and parsed by
// the Encode and Decode functions of this package.
type ReplayServer interface {
	Ping(context.Context, *empty.Empty) (*empty.Empty, error)
	OpenLog(context.Context, *wrappers.BytesValue) (*wrappers.StringValue, error)
	CloseLog(context.Context, *structpb.Struct) (*empty.Empty, error)
	RunStructuredPass(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunActivePass(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunActiveFullPass(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetResourceUsage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Requirements(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unary(name string, newRequest func() interface{}, call func(ReplayServer, context.Context, interface{}) (interface{}, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newRequest()
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(ReplayServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(s, ctx, req)
			})
		},
	}
}

func newEmpty() interface{}  { return &empty.Empty{} }
func newStruct() interface{} { return &structpb.Struct{} }

func structCall(f func(ReplayServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(ReplayServer, context.Context, interface{}) (interface{}, error) {
	return func(s ReplayServer, ctx context.Context, in interface{}) (interface{}, error) {
		return f(s, ctx, in.(*structpb.Struct))
	}
}

// ServiceDesc describes the replay service to grpc.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReplayServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", newEmpty, func(s ReplayServer, ctx context.Context, in interface{}) (interface{}, error) {
			return s.Ping(ctx, in.(*empty.Empty))
		}),
		unary("OpenLog", func() interface{} { return &wrappers.BytesValue{} }, func(s ReplayServer, ctx context.Context, in interface{}) (interface{}, error) {
			return s.OpenLog(ctx, in.(*wrappers.BytesValue))
		}),
		unary("CloseLog", newStruct, func(s ReplayServer, ctx context.Context, in interface{}) (interface{}, error) {
			return s.CloseLog(ctx, in.(*structpb.Struct))
		}),
		unary("RunStructuredPass", newStruct, structCall(ReplayServer.RunStructuredPass)),
		unary("RunActivePass", newStruct, structCall(ReplayServer.RunActivePass)),
		unary("RunActiveFullPass", newStruct, structCall(ReplayServer.RunActiveFullPass)),
		unary("GetResourceUsage", newStruct, structCall(ReplayServer.GetResourceUsage)),
		unary("Requirements", newStruct, structCall(ReplayServer.Requirements)),
	},
	Metadata: "gfxreplay/service",
}

// RegisterReplayServer registers srv with s.
func RegisterReplayServer(s grpc.ServiceRegistrar, srv ReplayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ReplayClient is the client API of the replay service.
type ReplayClient struct {
	cc grpc.ClientConnInterface
}

// NewReplayClient returns a client issuing calls on cc.
func NewReplayClient(cc grpc.ClientConnInterface) *ReplayClient {
	return &ReplayClient{cc: cc}
}

func (c *ReplayClient) invoke(ctx context.Context, method string, in, out interface{}, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *ReplayClient) structCall(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if err := c.invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReplayClient) Ping(ctx context.Context, in *empty.Empty, opts ...grpc.CallOption) (*empty.Empty, error) {
	out := &empty.Empty{}
	if err := c.invoke(ctx, "Ping", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReplayClient) OpenLog(ctx context.Context, in *wrappers.BytesValue, opts ...grpc.CallOption) (*wrappers.StringValue, error) {
	out := &wrappers.StringValue{}
	if err := c.invoke(ctx, "OpenLog", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReplayClient) CloseLog(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*empty.Empty, error) {
	out := &empty.Empty{}
	if err := c.invoke(ctx, "CloseLog", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReplayClient) RunStructuredPass(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.structCall(ctx, "RunStructuredPass", in, opts...)
}

func (c *ReplayClient) RunActivePass(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.structCall(ctx, "RunActivePass", in, opts...)
}

func (c *ReplayClient) RunActiveFullPass(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.structCall(ctx, "RunActiveFullPass", in, opts...)
}

func (c *ReplayClient) GetResourceUsage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.structCall(ctx, "GetResourceUsage", in, opts...)
}

func (c *ReplayClient) Requirements(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.structCall(ctx, "Requirements", in, opts...)
}
