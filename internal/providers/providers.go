package providers

import (
	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/providers/animation"
	"github.com/GriffinCanCode/scenemcp/internal/providers/geometry"
	"github.com/GriffinCanCode/scenemcp/internal/providers/inspect"
	"github.com/GriffinCanCode/scenemcp/internal/providers/materials"
	"github.com/GriffinCanCode/scenemcp/internal/providers/physics"
)

// Scene returns the scene providers in catalogue order
func Scene() []tools.Provider {
	return []tools.Provider{
		inspect.NewProvider(),
		geometry.NewProvider(),
		materials.NewProvider(),
		physics.NewProvider(),
		animation.NewProvider(),
	}
}

// RegisterAll registers the scene providers followed by extra, then checks
// that every capability has both forms.
func RegisterAll(d *tools.Dispatcher, extra ...tools.Provider) error {
	for _, p := range append(Scene(), extra...) {
		if err := d.Register(p); err != nil {
			return err
		}
	}
	return tools.CheckParity(d.Tools())
}
