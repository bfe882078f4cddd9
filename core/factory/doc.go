// Package factory provides a small generic registry used to instantiate
// pluggable modules (classifiers, distance providers, stores, metrics sinks,
// event forwarders) from configuration. A module is described by a type
// string and a map of raw settings; factories decode the settings into typed
// structs with Decode and return the concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[travel.Provider]("distance provider")
//	reg.MustRegister("static", func(conf map[string]any) (travel.Provider, error) {
//	    var c struct{ Minutes int `json:"minutes"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newStatic(c.Minutes), nil
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "static", Conf: map[string]any{"minutes": 12}})
package factory
