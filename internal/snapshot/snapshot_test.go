package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() State {
	return State{
		Header: Header{Version: Version, Step: 12, Width: 2, Height: 1, Seed: 42},
		Communities: []Community{
			{
				ID:                  0,
				UltrasocietalTraits: []bool{true, false},
				MilitaryTechs:       []bool{false, false},
				Comfort:             0.25,
				Depletion:           make([]float64, 10),
				Yield:               3.5,
				Workrate:            0.5,
				Paradigm:            1,
				Inbox:               []uint64{2},
			},
			{
				ID:                  1,
				UltrasocietalTraits: []bool{false, false},
				MilitaryTechs:       []bool{true, true},
				Depletion:           make([]float64, 10),
				Workrate:            0.55,
				Paradigm:            2,
			},
		},
		Paradigms: []Paradigm{
			{ID: 1, YieldRules: make([]float64, 10), DepletionRules: make([]float64, 10), Expectations: 12},
			{ID: 2, YieldRules: make([]float64, 10), DepletionRules: make([]float64, 10), Expectations: 3, Origin: 1},
		},
		Polities:       []Polity{{ID: 7, MaxSize: 2, Members: []int{0, 1}}},
		PolitySizes:    []int{3, 1},
		LastParadigmID: 2,
		LastPolityID:   7,
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.snap")
	st := sampleState()
	require.NoError(t, Write(path, st))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, st, got)

	hdr, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, st.Header, hdr)
}

func TestReadRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.snap")
	st := sampleState()
	st.Header.Version = Version + 1
	require.NoError(t, Write(path, st))

	_, err := Read(path)
	assert.True(t, errors.Is(err, ErrVersion))
}

func TestReadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()

	_, err := Read(filepath.Join(dir, "missing.snap"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	plain := filepath.Join(dir, "plain.snap")
	require.NoError(t, os.WriteFile(plain, []byte("{\"version\":1}\n"), 0o644))
	_, err = Read(plain)
	assert.Error(t, err)

	// Valid header, truncated body.
	f, err := os.Create(filepath.Join(dir, "short.snap"))
	require.NoError(t, err)
	enc, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = enc.Write([]byte("{\"version\":1,\"step\":3}\n"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	hdr, err := ReadHeader(f.Name())
	require.NoError(t, err)
	assert.Equal(t, 3, hdr.Step)
	_, err = Read(f.Name())
	assert.Error(t, err)
}
