package remote

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/tailored-agentic-units/autosave/store"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type client struct {
	list *connect.Client[emptypb.Empty, structpb.ListValue]
	load *connect.Client[wrapperspb.StringValue, wrapperspb.StringValue]
	save *connect.Client[structpb.Struct, emptypb.Empty]
}

// NewClient creates a store.Store that calls the store service at baseURL.
// Connect CodeNotFound maps back to store.ErrKeyNotFound; any other failure
// wraps store.ErrLoadFailed or store.ErrSaveFailed.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) store.Store {
	baseURL = strings.TrimRight(baseURL, "/")

	return &client{
		list: connect.NewClient[emptypb.Empty, structpb.ListValue](httpClient, baseURL+ListProcedure, opts...),
		load: connect.NewClient[wrapperspb.StringValue, wrapperspb.StringValue](httpClient, baseURL+LoadProcedure, opts...),
		save: connect.NewClient[structpb.Struct, emptypb.Empty](httpClient, baseURL+SaveProcedure, opts...),
	}
}

func (c *client) List(ctx context.Context) ([]string, error) {
	resp, err := c.list.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrLoadFailed, err)
	}

	values := resp.Msg.GetValues()
	keys := make([]string, 0, len(values))
	for _, v := range values {
		keys = append(keys, v.GetStringValue())
	}
	return keys, nil
}

func (c *client) Load(ctx context.Context, key string) (string, error) {
	resp, err := c.load.CallUnary(ctx, connect.NewRequest(wrapperspb.String(key)))
	if err != nil {
		if connect.CodeOf(err) == connect.CodeNotFound {
			return "", fmt.Errorf("%w: %s", store.ErrKeyNotFound, key)
		}
		return "", fmt.Errorf("%w: %s: %v", store.ErrLoadFailed, key, err)
	}
	return resp.Msg.GetValue(), nil
}

func (c *client) Save(ctx context.Context, key, contents string) error {
	msg := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldKey:      structpb.NewStringValue(key),
		fieldContents: structpb.NewStringValue(contents),
	}}

	if _, err := c.save.CallUnary(ctx, connect.NewRequest(msg)); err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrSaveFailed, key, err)
	}
	return nil
}
