package server

import "google.golang.org/grpc"

// Registrar attaches one service to a gRPC server. Services describe
// themselves with a hand-written grpc.ServiceDesc served over the JSON codec.
type Registrar interface {
	Register(s grpc.ServiceRegistrar)
}
