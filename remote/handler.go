package remote

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/tailored-agentic-units/autosave/store"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type handler struct {
	store store.Store
}

// NewHandler exposes s as the store service. It returns the path prefix to
// mount the handler on, in the style of generated Connect handlers:
//
//	mux := http.NewServeMux()
//	mux.Handle(remote.NewHandler(s))
func NewHandler(s store.Store, opts ...connect.HandlerOption) (string, http.Handler) {
	h := &handler{store: s}

	mux := http.NewServeMux()
	mux.Handle(ListProcedure, connect.NewUnaryHandler(ListProcedure, h.list, opts...))
	mux.Handle(LoadProcedure, connect.NewUnaryHandler(LoadProcedure, h.load, opts...))
	mux.Handle(SaveProcedure, connect.NewUnaryHandler(SaveProcedure, h.save, opts...))

	return "/" + ServiceName + "/", mux
}

func (h *handler) list(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.ListValue], error) {
	keys, err := h.store.List(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}

	values := make([]*structpb.Value, 0, len(keys))
	for _, key := range keys {
		values = append(values, structpb.NewStringValue(key))
	}
	return connect.NewResponse(&structpb.ListValue{Values: values}), nil
}

func (h *handler) load(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[wrapperspb.StringValue], error) {
	contents, err := h.store.Load(ctx, req.Msg.GetValue())
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(wrapperspb.String(contents)), nil
}

func (h *handler) save(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[emptypb.Empty], error) {
	fields := req.Msg.GetFields()
	key := fields[fieldKey].GetStringValue()
	if key == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingKey)
	}

	if err := h.store.Save(ctx, key, fields[fieldContents].GetStringValue()); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}
