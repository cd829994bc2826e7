package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/DRSN-tech/digital-vault/internal/cfg"
	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/internal/usecase"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeProductUC struct {
	usecase.ProductUC
	products map[string]*domain.Product
	err      error
}

func (f *fakeProductUC) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	product, ok := f.products[id]
	if !ok {
		return nil, e.Wrap("fake", e.ErrProductNotFound)
	}
	return product, nil
}

func (f *fakeProductUC) ListUserProducts(_ context.Context, userID string) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	var res []domain.Product
	for _, product := range f.products {
		if product.UserID == userID {
			res = append(res, *product)
		}
	}
	return res, nil
}

func startServer(t *testing.T, uc usecase.ProductUC) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(&cfg.GRPCConfig{NetworkMode: "tcp"}, logger.Nop{})
	srv.RegisterServices(uc)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

	return conn
}

func testProduct() *domain.Product {
	product := domain.NewProduct("p-1", "Pixel Icons", "Icons", decimal.RequireFromString("19.9"), "", "cat-1", "seller-1",
		[]string{"http://cdn.test/vault/products/previews/a.png"}, "products/files/a.zip")
	product.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return product
}

func TestProductService_GetProduct(t *testing.T) {
	conn := startServer(t, &fakeProductUC{products: map[string]*domain.Product{"p-1": testProduct()}})

	res := &structpb.Struct{}
	err := conn.Invoke(context.Background(), GetProductMethod, wrapperspb.String("p-1"), res)
	require.NoError(t, err)

	fields := res.AsMap()
	assert.Equal(t, "p-1", fields["id"])
	assert.Equal(t, "19.90", fields["price"])
	assert.Equal(t, "PENDING", fields["status"])
	assert.Equal(t, []any{"http://cdn.test/vault/products/previews/a.png"}, fields["previewUrls"])
	assert.Equal(t, "2026-01-02T03:04:05Z", fields["createdAt"])
	assert.NotContains(t, fields, "assetKey")
}

func TestProductService_Errors(t *testing.T) {
	tests := []struct {
		name string
		uc   *fakeProductUC
		id   string
		code codes.Code
	}{
		{name: "not found", uc: &fakeProductUC{}, id: "missing", code: codes.NotFound},
		{name: "empty id", uc: &fakeProductUC{}, id: "", code: codes.InvalidArgument},
		{name: "storage", uc: &fakeProductUC{err: e.Mark(e.ErrStorageFailed, assert.AnError)}, id: "p-1", code: codes.Unavailable},
		{name: "internal", uc: &fakeProductUC{err: assert.AnError}, id: "p-1", code: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := startServer(t, tt.uc)

			err := conn.Invoke(context.Background(), GetProductMethod, wrapperspb.String(tt.id), &structpb.Struct{})
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestProductService_ListUserProducts(t *testing.T) {
	other := testProduct()
	other.ID, other.UserID = "p-2", "seller-2"
	conn := startServer(t, &fakeProductUC{products: map[string]*domain.Product{"p-1": testProduct(), "p-2": other}})

	res := &structpb.ListValue{}
	err := conn.Invoke(context.Background(), ListUserProductsMethod, wrapperspb.String("seller-1"), res)
	require.NoError(t, err)

	require.Len(t, res.GetValues(), 1)
	assert.Equal(t, "p-1", res.GetValues()[0].GetStructValue().GetFields()["id"].GetStringValue())
}

func TestGRPCServer_Health(t *testing.T) {
	conn := startServer(t, &fakeProductUC{})

	res, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: ProductQueryServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.GetStatus())
}
