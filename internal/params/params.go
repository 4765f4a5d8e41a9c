// Package params holds the simulation parameter set: every tunable of the
// simulation plus the named strategies that select between rule branches.
package params

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is matched by every ConfigError.
var ErrInvalid = errors.New("invalid parameter")

// ConfigError reports an unrecognised or out-of-range parameter value.
type ConfigError struct {
	Field   string
	Value   any
	Allowed []string
}

func (e *ConfigError) Error() string {
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("%s must be one of %s, got %q", e.Field, quoteAll(e.Allowed), e.Value)
	}
	return fmt.Sprintf("invalid value %v for %s", e.Value, e.Field)
}

// Is lets errors.Is match ErrInvalid.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalid
}

func quoteAll(vals []string) string {
	q := make([]string, len(vals))
	for i, v := range vals {
		q[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(q, ", ")
}

// AttackMethod selects how a community picks its attack target.
type AttackMethod uint8

const (
	AttackUniform             AttackMethod = iota // One random cardinal direction
	AttackEntropyMaximisation                     // Weighted towards weak neighbours
)

// ContagionMode selects how comfort and expectations are computed and spread.
type ContagionMode uint8

const (
	ContagionNone             ContagionMode = iota // Comfort-driven response
	ContagionPerfect                               // Perfect information about net returns
	ContagionFutureDiscounted                      // Undiscounted net returns
)

// TechSeed selects how military technologies are seeded on reset.
type TechSeed uint8

const (
	TechSeedSteppes TechSeed = iota // Steppe communities start with every tech
	TechSeedUniform                 // Any polity-forming community, with fixed probability
)

var (
	attackMethods = map[string]AttackMethod{
		"uniform":              AttackUniform,
		"entropy_maximisation": AttackEntropyMaximisation,
	}
	contagionModes = map[string]ContagionMode{
		"":                 ContagionNone,
		"none":             ContagionNone,
		"Perfect":          ContagionPerfect,
		"FutureDiscounted": ContagionFutureDiscounted,
	}
	techSeeds = map[string]TechSeed{
		"steppes": TechSeedSteppes,
		"uniform": TechSeedUniform,
	}
)

// String returns the configuration name of the attack method.
func (m AttackMethod) String() string {
	if m == AttackEntropyMaximisation {
		return "entropy_maximisation"
	}
	return "uniform"
}

// String returns the configuration name of the contagion mode.
func (m ContagionMode) String() string {
	switch m {
	case ContagionPerfect:
		return "Perfect"
	case ContagionFutureDiscounted:
		return "FutureDiscounted"
	default:
		return "none"
	}
}

// String returns the configuration name of the tech seed mode.
func (s TechSeed) String() string {
	if s == TechSeedUniform {
		return "uniform"
	}
	return "steppes"
}

// Parameters is the read-only configuration of a simulation run.
// Strategy selectors are strings in files and are resolved by Validate.
type Parameters struct {
	// Warfare
	AttackMethodName               string  `yaml:"attack_method"`
	ElevationDefenceCoefficient    float64 `yaml:"elevation_defence_coefficient"`
	UltrasocietalAttackCoefficient float64 `yaml:"ultrasocietal_attack_coefficient"`
	EthnocideMin                   float64 `yaml:"ethnocide_min"`
	EthnocideMax                   float64 `yaml:"ethnocide_max"`
	EthnocideElevationCoefficient  float64 `yaml:"ethnocide_elevation_coefficient"`
	SpreadParadigmOnEthnocide      bool    `yaml:"spread_para_on_ethnocide"`

	// Sea attacks
	SeaAttacks            bool    `yaml:"sea_attacks"`
	BaseSeaAttackDistance float64 `yaml:"base_sea_attack_distance"`
	SeaAttackIncrement    float64 `yaml:"sea_attack_increment"`

	// Traits and technology
	NUltrasocietalTraits          int     `yaml:"n_ultrasocietal_traits"`
	NMilitaryTechs                int     `yaml:"n_military_techs"`
	MutationToUltrasocietal       float64 `yaml:"mutation_to_ultrasocietal"`
	MutationFromUltrasocietal     float64 `yaml:"mutation_from_ultrasocietal"`
	MilitaryTechSpreadProbability float64 `yaml:"military_tech_spread_probability"`
	MilitaryTechSeedName          string  `yaml:"military_technology_seed"`
	UniformTechSeedProbability    float64 `yaml:"uniform_tech_seed_probability"`

	// Disintegration
	DisintegrationBase                          float64 `yaml:"disintegration_base"`
	DisintegrationSizeCoefficient               float64 `yaml:"disintegration_size_coefficient"`
	DisintegrationUltrasocietalTraitCoefficient float64 `yaml:"disintegration_ultrasocietal_trait_coefficient"`

	// Paradigm and comfort
	Iconorhythm             bool    `yaml:"icono"`
	IconoLoops              int     `yaml:"num_icono_loops"`
	ContagionName           string  `yaml:"contagion"`
	MutationAmount          int     `yaml:"mut_amount"`
	Sensitivity             float64 `yaml:"sensitivity"`
	MutationRate            float64 `yaml:"mutation_rate"`
	Threshold               float64 `yaml:"threshold"`
	WorkrateChange          float64 `yaml:"workrate_change"`
	MilitarySpreadOnMimesis bool    `yaml:"mil_spread"`
	LatitudeModifier        float64 `yaml:"lat_mod"`
	YieldMultiplier         float64 `yaml:"mult"`

	attackMethod AttackMethod
	contagion    ContagionMode
	techSeed     TechSeed
}

// Default returns the reference parameter catalogue.
func Default() *Parameters {
	p := &Parameters{
		AttackMethodName:               "uniform",
		ElevationDefenceCoefficient:    4,
		UltrasocietalAttackCoefficient: 2,
		EthnocideMin:                   0.05,
		EthnocideMax:                   1,
		EthnocideElevationCoefficient:  0.5,
		SpreadParadigmOnEthnocide:      true,

		SeaAttacks:            true,
		BaseSeaAttackDistance: 1,
		SeaAttackIncrement:    0.025,

		NUltrasocietalTraits:          10,
		NMilitaryTechs:                10,
		MutationToUltrasocietal:       0.0001,
		MutationFromUltrasocietal:     0.002,
		MilitaryTechSpreadProbability: 0.25,
		MilitaryTechSeedName:          "steppes",
		UniformTechSeedProbability:    0.0434,

		DisintegrationBase:                          0.05,
		DisintegrationSizeCoefficient:               0.05,
		DisintegrationUltrasocietalTraitCoefficient: 2,

		Iconorhythm:             true,
		IconoLoops:              1,
		ContagionName:           "",
		MutationAmount:          1,
		Sensitivity:             0.1,
		MutationRate:            0.1,
		Threshold:               1.1,
		WorkrateChange:          0.05,
		MilitarySpreadOnMimesis: false,
		LatitudeModifier:        1,
		YieldMultiplier:         1,
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
	return p
}

// Validate resolves the strategy selectors and checks numeric ranges.
// A configuration error is returned for the first invalid value.
func (p *Parameters) Validate() error {
	am, ok := attackMethods[p.AttackMethodName]
	if !ok {
		return &ConfigError{Field: "attack_method", Value: p.AttackMethodName, Allowed: []string{"uniform", "entropy_maximisation"}}
	}
	cm, ok := contagionModes[p.ContagionName]
	if !ok {
		return &ConfigError{Field: "contagion", Value: p.ContagionName, Allowed: []string{"none", "Perfect", "FutureDiscounted"}}
	}
	ts, ok := techSeeds[p.MilitaryTechSeedName]
	if !ok {
		return &ConfigError{Field: "military_technology_seed", Value: p.MilitaryTechSeedName, Allowed: []string{"steppes", "uniform"}}
	}

	switch {
	case p.NUltrasocietalTraits < 1:
		return &ConfigError{Field: "n_ultrasocietal_traits", Value: p.NUltrasocietalTraits}
	case p.NMilitaryTechs < 1:
		return &ConfigError{Field: "n_military_techs", Value: p.NMilitaryTechs}
	case p.IconoLoops < 0:
		return &ConfigError{Field: "num_icono_loops", Value: p.IconoLoops}
	case p.MutationAmount < 0:
		return &ConfigError{Field: "mut_amount", Value: p.MutationAmount}
	}
	for field, v := range map[string]float64{
		"mutation_to_ultrasocietal":        p.MutationToUltrasocietal,
		"mutation_from_ultrasocietal":      p.MutationFromUltrasocietal,
		"military_tech_spread_probability": p.MilitaryTechSpreadProbability,
		"uniform_tech_seed_probability":    p.UniformTechSeedProbability,
		"mutation_rate":                    p.MutationRate,
	} {
		if v < 0 || v > 1 {
			return &ConfigError{Field: field, Value: v}
		}
	}

	p.attackMethod = am
	p.contagion = cm
	p.techSeed = ts
	return nil
}

// AttackMethod returns the resolved attack strategy. Validate must have succeeded.
func (p *Parameters) AttackMethod() AttackMethod { return p.attackMethod }

// Contagion returns the resolved contagion mode. Validate must have succeeded.
func (p *Parameters) Contagion() ContagionMode { return p.contagion }

// TechSeed returns the resolved military tech seeding mode. Validate must have succeeded.
func (p *Parameters) TechSeed() TechSeed { return p.techSeed }

// Clone returns an independent copy.
func (p *Parameters) Clone() *Parameters {
	c := *p
	return &c
}

// Load reads a YAML parameter file layered over Default and validates it.
func Load(path string) (*Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse parameter file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// SaveToFile writes the parameter set as YAML.
func (p *Parameters) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parameter directory: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
