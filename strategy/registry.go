package strategy

import "fmt"

// Factory builds a Handle given its engine-facing collaborator and settings.
type Factory func(engine EngineFacing, settings map[string]interface{}) Handle

// Registry maps strategy names to their Factory, mirroring how a live
// deployment would let an operator select a strategy by name from
// configuration rather than wiring it by hand.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a Factory under name. It overwrites any prior registration
// for that name.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build instantiates the named strategy, or fails if the name is unknown.
func (r *Registry) Build(name string, engine EngineFacing, settings map[string]interface{}) (Handle, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy name: %s (available: %v)", name, r.Names())
	}
	return f(engine, settings), nil
}

// Names lists every registered strategy name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// NewDefaultRegistry returns a Registry pre-populated with the sample
// strategies shipped alongside this engine.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("ma_crossover", func(engine EngineFacing, settings map[string]interface{}) Handle {
		return NewMACrossover(engine, settings)
	})
	r.Register("stop_reverse", func(engine EngineFacing, settings map[string]interface{}) Handle {
		return NewStopAndReverse(engine, settings)
	})
	return r
}
