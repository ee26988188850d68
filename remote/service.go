// Package remote serves a store.Store over Connect RPC and provides a
// store.Store client for it, so document buffers can edit documents held
// by another process.
//
// Messages use protobuf well-known types, so no generated code is needed:
//
//	List: google.protobuf.Empty       -> google.protobuf.ListValue (keys)
//	Load: google.protobuf.StringValue -> google.protobuf.StringValue
//	Save: google.protobuf.Struct{key, contents} -> google.protobuf.Empty
//
// Importing this package registers the store.BackendRemote backend.
package remote

import (
	"net/http"

	"github.com/tailored-agentic-units/autosave/store"
)

// ServiceName is the fully qualified Connect service name.
const ServiceName = "autosave.v1.StoreService"

// Procedure paths for the store service.
const (
	ListProcedure = "/" + ServiceName + "/List"
	LoadProcedure = "/" + ServiceName + "/Load"
	SaveProcedure = "/" + ServiceName + "/Save"
)

// Field names of the Save request struct.
const (
	fieldKey      = "key"
	fieldContents = "contents"
)

func init() {
	store.RegisterBackend(store.BackendRemote, func(cfg *store.Config) (store.Store, error) {
		if cfg.URL == "" {
			return nil, errMissingURL
		}
		return NewClient(http.DefaultClient, cfg.URL), nil
	})
}
