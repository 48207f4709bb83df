package pipeline

import (
	"context"

	config "github.com/mwantia/godeid/internal/config/server"
	"github.com/mwantia/godeid/pkg/api"
	"github.com/mwantia/godeid/pkg/db/store"
	"github.com/mwantia/godeid/pkg/dicom"
	"github.com/mwantia/godeid/pkg/log"
)

// OutputDataPlugin rewrites a dataset on its way out to a remote execution
// target. The engine invokes Execute once per file, in chain order.
type OutputDataPlugin interface {
	Name() string
	Execute(ctx context.Context, dataset *dicom.Dataset, msg *api.ExportRequestDataMessage) (*dicom.Dataset, *api.ExportRequestDataMessage, error)
}

// InputDataPlugin rewrites a dataset returning from a remote execution
// target before it re-enters the storage pipeline.
type InputDataPlugin interface {
	Name() string
	Execute(ctx context.Context, dataset *dicom.Dataset, metadata *api.FileStorageMetadata) (*dicom.Dataset, *api.FileStorageMetadata, error)
}

// Dependencies is everything a plugin factory may draw from.
type Dependencies struct {
	Config config.PluginServerConfig
	Store  store.MappingStore
	Log    log.LoggerService
}
