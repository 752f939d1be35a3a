package interfaces

// Service is implemented by every interface ammd exposes the market through.
// The daemon starts them at boot and stops them on shutdown.
type Service interface {
	Start() error
	Stop()
}
