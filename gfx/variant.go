package gfx

// PipelineVariant selects one of the prebuilt graphics pipelines.
type PipelineVariant int

// Pipeline variants
const (
	Fill PipelineVariant = iota
	Wireframe
)

func (v PipelineVariant) String() string {
	switch v {
	case Fill:
		return "fill"
	case Wireframe:
		return "wireframe"
	}
	return "unknown"
}

// Variants tracks the active pipeline variant. Switching is an index
// change, the pipelines themselves are built up front.
type Variants struct {
	active    PipelineVariant
	wireframe bool
}

// NewVariants starts on Fill. Wireframe is only offered when the
// device can rasterize non-solid polygons.
func NewVariants(wireframeSupported bool) Variants {
	return Variants{active: Fill, wireframe: wireframeSupported}
}

// Supported reports whether the variant can be built on this device.
func (v Variants) Supported(variant PipelineVariant) bool {
	switch variant {
	case Fill:
		return true
	case Wireframe:
		return v.wireframe
	}
	return false
}

// Available lists the variants to build, in index order.
func (v Variants) Available() []PipelineVariant {
	if v.wireframe {
		return []PipelineVariant{Fill, Wireframe}
	}
	return []PipelineVariant{Fill}
}

// Active is the variant to bind when recording.
func (v Variants) Active() PipelineVariant {
	return v.active
}

// Set switches to variant if supported and reports whether it did.
func (v *Variants) Set(variant PipelineVariant) bool {
	if !v.Supported(variant) {
		return false
	}
	v.active = variant
	return true
}

// Toggle flips between Fill and Wireframe. Without wireframe support
// it stays on Fill.
func (v *Variants) Toggle() PipelineVariant {
	if v.active == Fill {
		v.Set(Wireframe)
	} else {
		v.Set(Fill)
	}
	return v.active
}
