package stress

// Preset is a named, pre-validated parameter set mirroring the dashboard's
// canned what-if buttons.
type Preset struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

// Presets returns the built-in scenarios, ordered mild to crisis. Every
// preset passes Parameters.Validate; a test pins that.
func Presets() []Preset {
	return []Preset{
		{
			Name:        "mild_correction",
			Description: "A routine pullback with little contagion",
			Parameters: Parameters{
				MarketStressPct:        10,
				CorrelationIncreasePct: 10,
				VolatilityMultiplier:   1.2,
				LiquidityImpactPct:     2,
			},
		},
		{
			Name:        "moderate_selloff",
			Description: "A broad selloff with rising correlations",
			Parameters: Parameters{
				MarketStressPct:        20,
				CorrelationIncreasePct: 40,
				VolatilityMultiplier:   2.5,
				LiquidityImpactPct:     5,
			},
		},
		{
			Name:        "severe_bear",
			Description: "A deep bear market with stressed liquidity",
			Parameters: Parameters{
				MarketStressPct:        35,
				CorrelationIncreasePct: 70,
				VolatilityMultiplier:   3.5,
				LiquidityImpactPct:     12,
			},
		},
		{
			Name:        "liquidity_crisis",
			Description: "A 2008-style crash where everything correlates",
			Parameters: Parameters{
				MarketStressPct:        50,
				CorrelationIncreasePct: 95,
				VolatilityMultiplier:   5.0,
				LiquidityImpactPct:     18,
			},
		},
	}
}

// FindPreset returns the preset with the given name, or false.
func FindPreset(name string) (Preset, bool) {
	for _, p := range Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}
