package domain

import "context"

// SensorAdapter produces one formatted reading per call. Implementations block for the
// duration of the device transaction and return the text in the layout ParseReading accepts.
type SensorAdapter interface {
	Read(ctx context.Context) (string, error)
}

// Initializer is implemented by adapters that need a device-ready check before sampling.
// Init returns an error wrapping ErrDeviceNotReady when the device is absent.
type Initializer interface {
	Init(ctx context.Context) error
}

// InitAdapters runs Init on every adapter that supports it and returns the kinds that failed.
func InitAdapters(ctx context.Context, sources []Source, logger Logger) map[SensorKind]error {
	failed := make(map[SensorKind]error)
	for _, src := range sources {
		initializer, ok := src.Adapter.(Initializer)
		if !ok {
			continue
		}
		err := SafeRun(func() error { return initializer.Init(ctx) }, logger)
		if err != nil {
			logger.Error("%s: init failed: %s", src.Kind, err.Error())
			failed[src.Kind] = err
		}
	}
	return failed
}
