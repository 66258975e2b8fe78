// Package provider defines the base contract shared by swappable engine
// backends and a registry that builds them by name.
//
// A backend implements Provider. Backends that hold resources also
// implement Closeable. A Registry maps an engine name from configuration to
// the factory that constructs it:
//
//	reg := provider.NewRegistry[transcription.EngineConfig, transcription.Transcriber]()
//	reg.RegisterFactory("mlx", newMLX)
//	engine, err := reg.Create(ctx, "mlx", cfg)
package provider
