package frame

// AutomationRate tells the host how often a parameter may change.
type AutomationRate string

const (
	// ARate parameters may change on every frame.
	ARate AutomationRate = "a-rate"
	// KRate parameters are constant for a whole block.
	KRate AutomationRate = "k-rate"
)

// ParameterDescriptor declares one automatable parameter for the host's
// parameter registration. Descriptors are forwarded as given and never
// validated.
type ParameterDescriptor struct {
	Name           string
	MinValue       float64
	MaxValue       float64
	DefaultValue   float64
	AutomationRate AutomationRate
}

// AudioParamDescriptor returns d keyed the way a Web Audio host registers
// parameters. An empty AutomationRate is left out so the host default applies.
func (d ParameterDescriptor) AudioParamDescriptor() map[string]any {
	m := map[string]any{
		"name":         d.Name,
		"minValue":     d.MinValue,
		"maxValue":     d.MaxValue,
		"defaultValue": d.DefaultValue,
	}
	if d.AutomationRate != "" {
		m["automationRate"] = string(d.AutomationRate)
	}
	return m
}

// AudioParamDescriptors converts descriptors for a Web Audio host, in order.
func AudioParamDescriptors(descriptors []ParameterDescriptor) []any {
	out := make([]any, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.AudioParamDescriptor()
	}
	return out
}

// automation is one parameter that carries a value per frame in the current block.
type automation struct {
	name   string
	values []float64
}
