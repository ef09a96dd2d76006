// Package provider holds the named backends lifescribe can transcribe or
// diarize with. A Registry maps backend names to factories, a Manager keeps
// the initialized instances and a Selector picks one when no default is
// configured. Guard wraps backend calls with retry and a circuit breaker.
//
//	reg := provider.NewRegistry[transcription.Provider]()
//	reg.RegisterFactory("whisper", whisper.Factory())
//	mgr := provider.NewManager(reg, &provider.HealthCheckSelector[transcription.Provider]{})
//	_ = mgr.Initialize("whisper", provider.Settings{"url": "http://localhost:8387"})
//	p, err := mgr.Get(ctx)
package provider
