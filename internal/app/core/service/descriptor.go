package service

// Layer describes where a service sits in the platform.
type Layer string

const (
	LayerCore      Layer = "core"
	LayerAnalytics Layer = "analytics"
	LayerRealtime  Layer = "realtime"
)

// Descriptor advertises a service's placement and capabilities. The health
// endpoint and the CLI list these; runtime behaviour does not depend on them.
type Descriptor struct {
	Name         string   `json:"name"`
	Domain       string   `json:"domain"`
	Layer        Layer    `json:"layer"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// WithCapabilities returns a copy of the descriptor with additional
// capabilities appended.
func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}

// Describer is implemented by services that publish a Descriptor.
type Describer interface {
	Descriptor() Descriptor
}
