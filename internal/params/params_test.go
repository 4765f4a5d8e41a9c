package params

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResolvesStrategies(t *testing.T) {
	p := Default()
	assert.Equal(t, AttackUniform, p.AttackMethod())
	assert.Equal(t, ContagionNone, p.Contagion())
	assert.Equal(t, TechSeedSteppes, p.TechSeed())
	assert.Equal(t, 10, p.NUltrasocietalTraits)
	assert.Equal(t, 10, p.NMilitaryTechs)
}

func TestValidateSelectors(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Parameters)
		field string
	}{
		{"attack method", func(p *Parameters) { p.AttackMethodName = "flanking" }, "attack_method"},
		{"contagion", func(p *Parameters) { p.ContagionName = "Gossip" }, "contagion"},
		{"tech seed", func(p *Parameters) { p.MilitaryTechSeedName = "coastal" }, "military_technology_seed"},
		{"trait count", func(p *Parameters) { p.NUltrasocietalTraits = 0 }, "n_ultrasocietal_traits"},
		{"mutation rate", func(p *Parameters) { p.MutationRate = 1.5 }, "mutation_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.edit(p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateAcceptsAlternatives(t *testing.T) {
	p := Default()
	p.AttackMethodName = "entropy_maximisation"
	p.ContagionName = "FutureDiscounted"
	p.MilitaryTechSeedName = "uniform"
	require.NoError(t, p.Validate())

	assert.Equal(t, AttackEntropyMaximisation, p.AttackMethod())
	assert.Equal(t, ContagionFutureDiscounted, p.Contagion())
	assert.Equal(t, TechSeedUniform, p.TechSeed())

	p.ContagionName = "Perfect"
	require.NoError(t, p.Validate())
	assert.Equal(t, ContagionPerfect, p.Contagion())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("attack_method: entropy_maximisation\nsea_attacks: false\nmut_amount: 3\n"), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, AttackEntropyMaximisation, p.AttackMethod())
	assert.False(t, p.SeaAttacks)
	assert.Equal(t, 3, p.MutationAmount)
	// Untouched values keep their defaults.
	assert.Equal(t, Default().MutationFromUltrasocietal, p.MutationFromUltrasocietal)
}

func TestLoadRejectsUnknownSelector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("military_technology_seed: everywhere\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "everywhere")
}

func TestSaveToFileRoundTrip(t *testing.T) {
	p := Default()
	p.Threshold = 1.7
	path := filepath.Join(t.TempDir(), "nested", "params.yaml")
	require.NoError(t, p.SaveToFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}
