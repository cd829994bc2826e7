package grpc

import (
	"errors"
	"time"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/pkg/e"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func GRPCErrorResponse(err error) error {
	switch {
	case errors.Is(err, e.ErrProductNotFound):
		return status.Error(codes.NotFound, e.ErrProductNotFound.Error())
	case errors.Is(err, e.ErrInvalidProductID), errors.Is(err, e.ErrValidationFailed):
		return status.Error(codes.InvalidArgument, e.ErrValidationFailed.Error())
	case errors.Is(err, e.ErrStorageFailed):
		return status.Error(codes.Unavailable, e.ErrStorageFailed.Error())
	default:
		return status.Error(codes.Internal, e.ErrInternalServerError.Error())
	}
}

// toGRPCProduct переводит товар в структуру ответа. Ключ приватного файла не передаётся.
func toGRPCProduct(pr *domain.Product) (*structpb.Struct, error) {
	previews := make([]any, len(pr.PreviewURLs))
	for i, url := range pr.PreviewURLs {
		previews[i] = url
	}

	fields := map[string]any{
		"id":          pr.ID,
		"title":       pr.Title,
		"description": pr.Description,
		"price":       pr.Price.StringFixed(2),
		"status":      string(pr.Status),
		"categoryId":  pr.CategoryID,
		"userId":      pr.UserID,
		"previewUrls": previews,
		"createdAt":   pr.CreatedAt.UTC().Format(time.RFC3339),
	}
	if pr.UpdatedAt != nil {
		fields["updatedAt"] = pr.UpdatedAt.UTC().Format(time.RFC3339)
	}

	return structpb.NewStruct(fields)
}

func toArrGRPCProduct(prs []domain.Product) (*structpb.ListValue, error) {
	res := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(prs))}
	for i := range prs {
		pr, err := toGRPCProduct(&prs[i])
		if err != nil {
			return nil, err
		}
		res.Values = append(res.Values, structpb.NewStructValue(pr))
	}

	return res, nil
}
