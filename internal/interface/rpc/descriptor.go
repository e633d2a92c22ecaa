// Package rpc gRPC传输层
//
// 服务 bookcatalog.v1.BookCatalog 直接使用protobuf的通用类型(Struct/ListValue/Value/StringValue),
// 图书记录是开放结构,不需要为它单独定义message。服务描述在这里手工声明,
// 同时把对应的文件描述符注册到全局registry,gRPC反射(grpcurl)可以正常解析。
//
//	service BookCatalog {
//	  rpc ListBooks(google.protobuf.Struct) returns (google.protobuf.ListValue);     // {field, searchTerm}
//	  rpc GetBook(google.protobuf.StringValue) returns (google.protobuf.Value);      // 不存在时为null
//	  rpc CreateBook(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc UpdateBook(google.protobuf.Struct) returns (google.protobuf.Struct);       // {id, book}
//	  rpc DeleteBook(google.protobuf.StringValue) returns (google.protobuf.Struct);
//	}
package rpc

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	// ServiceName 完整服务名
	ServiceName = "bookcatalog.v1.BookCatalog"
	protoFile   = "bookcatalog/v1/catalog.proto"
)

// BookCatalogServer 服务端接口
type BookCatalogServer interface {
	ListBooks(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	GetBook(context.Context, *wrapperspb.StringValue) (*structpb.Value, error)
	CreateBook(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateBook(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteBook(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// ServiceDesc 服务描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookCatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListBooks", Handler: unaryHandler("ListBooks", BookCatalogServer.ListBooks)},
		{MethodName: "GetBook", Handler: unaryHandler("GetBook", BookCatalogServer.GetBook)},
		{MethodName: "CreateBook", Handler: unaryHandler("CreateBook", BookCatalogServer.CreateBook)},
		{MethodName: "UpdateBook", Handler: unaryHandler("UpdateBook", BookCatalogServer.UpdateBook)},
		{MethodName: "DeleteBook", Handler: unaryHandler("DeleteBook", BookCatalogServer.DeleteBook)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoFile,
}

// RegisterBookCatalogServer 注册服务实现
func RegisterBookCatalogServer(s grpc.ServiceRegistrar, srv BookCatalogServer) {
	if err := registerFileDescriptor(); err != nil {
		panic(err)
	}
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unaryHandler 生成一元方法的处理函数(等价于protoc-gen-go-grpc生成的 _X_Handler)
func unaryHandler[Req any, Resp any, PReq interface {
	*Req
	proto.Message
}](method string, call func(BookCatalogServer, context.Context, PReq) (Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookCatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BookCatalogServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFileDescriptor 向全局registry注册服务的文件描述符(只执行一次)
func registerFileDescriptor() error {
	registerOnce.Do(func() {
		if _, err := protoregistry.GlobalFiles.FindFileByPath(protoFile); err == nil {
			return
		}
		fd, err := protodesc.NewFile(fileDescriptorProto(), protoregistry.GlobalFiles)
		if err != nil {
			registerErr = fmt.Errorf("构建服务描述符失败: %w", err)
			return
		}
		if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
			registerErr = fmt.Errorf("注册服务描述符失败: %w", err)
		}
	})
	return registerErr
}

func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	method := func(name, in, out string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(in),
			OutputType: proto.String(out),
		}
	}
	const (
		structType    = ".google.protobuf.Struct"
		listValueType = ".google.protobuf.ListValue"
		valueType     = ".google.protobuf.Value"
		stringType    = ".google.protobuf.StringValue"
	)

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(protoFile),
		Package: proto.String("bookcatalog.v1"),
		Dependency: []string{
			(&structpb.Struct{}).ProtoReflect().Descriptor().ParentFile().Path(),
			(&wrapperspb.StringValue{}).ProtoReflect().Descriptor().ParentFile().Path(),
		},
		Syntax: proto.String("proto3"),
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/xiebiao/bookcatalog/internal/interface/rpc"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("BookCatalog"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("ListBooks", structType, listValueType),
				method("GetBook", stringType, valueType),
				method("CreateBook", structType, structType),
				method("UpdateBook", structType, structType),
				method("DeleteBook", stringType, structType),
			},
		}},
	}
}

// BookCatalogClient 客户端
type BookCatalogClient struct {
	cc grpc.ClientConnInterface
}

// NewBookCatalogClient 创建客户端
func NewBookCatalogClient(cc grpc.ClientConnInterface) *BookCatalogClient {
	return &BookCatalogClient{cc: cc}
}

func (c *BookCatalogClient) ListBooks(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("ListBooks"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookCatalogClient) GetBook(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Value, error) {
	out := new(structpb.Value)
	if err := c.cc.Invoke(ctx, fullMethod("GetBook"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookCatalogClient) CreateBook(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("CreateBook"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookCatalogClient) UpdateBook(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("UpdateBook"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookCatalogClient) DeleteBook(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("DeleteBook"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
