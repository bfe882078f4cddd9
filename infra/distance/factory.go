package distance

import (
	"github.com/kilianp07/blockplan/core/factory"
	"github.com/kilianp07/blockplan/core/travel"
)

func init() {
	_ = travel.RegisterProvider("google", func(conf map[string]any) (travel.Provider, error) {
		var c GoogleConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewGoogle(c)
	})
	_ = travel.RegisterProvider("static", func(conf map[string]any) (travel.Provider, error) {
		var c StaticConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewStatic(c)
	})
}
