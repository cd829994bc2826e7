package grpc

import (
	"context"

	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ProductQueryServiceName = "digitalvault.v1.ProductQueryService"

	GetProductMethod       = "/" + ProductQueryServiceName + "/GetProduct"
	ListUserProductsMethod = "/" + ProductQueryServiceName + "/ListUserProducts"
)

// ProductQueryServer — сервис чтения карточек товаров для внутренних потребителей.
// Запросы несут идентификатор в google.protobuf.StringValue, ответы в google.protobuf.Struct/ListValue.
type ProductQueryServer interface {
	GetProduct(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	ListUserProducts(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error)
}

var ProductQueryServiceDesc = grpc.ServiceDesc{
	ServiceName: ProductQueryServiceName,
	HandlerType: (*ProductQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetProduct", Handler: getProductHandler},
		{MethodName: "ListUserProducts", Handler: listUserProductsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "digitalvault/v1/product_query.proto",
}

func RegisterProductQueryServer(s grpc.ServiceRegistrar, srv ProductQueryServer) {
	s.RegisterService(&ProductQueryServiceDesc, srv)
}

func getProductHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProductQueryServer).GetProduct(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetProductMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProductQueryServer).GetProduct(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func listUserProductsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProductQueryServer).ListUserProducts(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListUserProductsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ProductQueryServer).ListUserProducts(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

type ProductService struct {
	prUC   usecase.ProductUC
	logger logger.Logger
}

func NewProductService(prUC usecase.ProductUC, logger logger.Logger) *ProductService {
	return &ProductService{prUC: prUC, logger: logger}
}

func (g *ProductService) GetProduct(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	const op = "grpc.GetProduct"

	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, e.ErrInvalidProductID.Error())
	}

	product, err := g.prUC.GetProduct(ctx, req.GetValue())
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s", op)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	res, err := toGRPCProduct(product)
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s: encode product", op)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	return res, nil
}

func (g *ProductService) ListUserProducts(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	const op = "grpc.ListUserProducts"

	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, e.ErrOwnerRequired.Error())
	}

	products, err := g.prUC.ListUserProducts(ctx, req.GetValue())
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s", op)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	res, err := toArrGRPCProduct(products)
	if err != nil {
		g.logger.Errorf(e.Wrap(op, err), "%s: encode products", op)
		return nil, GRPCErrorResponse(e.Wrap(op, err))
	}

	return res, nil
}
