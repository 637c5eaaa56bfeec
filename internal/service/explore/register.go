package explore

import (
	"google.golang.org/grpc"

	"github.com/oggyb/campus-match/internal/app"
)

// Registrar ties the Explore service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
	engine *Engine
}

// NewRegistrar creates a new Registrar for the Explore service
func NewRegistrar(appCtx *app.AppContext, engine *Engine) *Registrar {
	return &Registrar{appCtx: appCtx, engine: engine}
}

// Register attaches the Explore service implementation to the gRPC server
func (r *Registrar) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, NewExploreService(r.appCtx, r.engine))
}
