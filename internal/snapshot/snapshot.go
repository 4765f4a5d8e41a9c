// Package snapshot stores complete world state as a zstd-compressed gob
// stream preceded by a one-line JSON header.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Version is the current snapshot format version.
const Version = 1

// ErrVersion is returned when a snapshot has an unsupported version.
var ErrVersion = errors.New("unsupported snapshot version")

type Header struct {
	Version int   `json:"version"`
	Step    int   `json:"step"`
	Width   int   `json:"width"`
	Height  int   `json:"height"`
	Seed    int64 `json:"seed"`
}

type State struct {
	Header Header `json:"header"`

	Communities []Community `json:"communities"`
	Paradigms   []Paradigm  `json:"paradigms"`
	Polities    []Polity    `json:"polities"`

	PolitySizes    []int  `json:"polity_sizes,omitempty"`
	LastParadigmID uint64 `json:"last_paradigm_id"`
	LastPolityID   uint64 `json:"last_polity_id"`
}

type Community struct {
	ID                  int       `json:"id"`
	UltrasocietalTraits []bool    `json:"ultrasocietal_traits"`
	MilitaryTechs       []bool    `json:"military_techs"`
	Comfort             float64   `json:"comfort"`
	Depletion           []float64 `json:"depletion"`
	Yield               float64   `json:"yield"`
	PrevYield           float64   `json:"prev_yield"`
	Workrate            float64   `json:"workrate"`
	SeaAttackDistance   float64   `json:"sea_attack_distance"`
	Paradigm            uint64    `json:"paradigm"`
	Inbox               []uint64  `json:"inbox,omitempty"`
}

type Paradigm struct {
	ID             uint64    `json:"id"`
	YieldRules     []float64 `json:"yield_rules"`
	DepletionRules []float64 `json:"depletion_rules"`
	Expectations   float64   `json:"expectations"`
	Latitude       float64   `json:"latitude"`
	MaxLatitude    float64   `json:"max_latitude"`
	Origin         int       `json:"origin"`
	MutationAmount int       `json:"mutation_amount"`
	Sensitivity    float64   `json:"sensitivity"`
	MutationRate   float64   `json:"mutation_rate"`
	Threshold      float64   `json:"threshold"`
	WorkrateChange float64   `json:"workrate_change"`
}

type Polity struct {
	ID      uint64 `json:"id"`
	MaxSize int    `json:"max_size"`
	Members []int  `json:"members"`
}

// Write stores state at path, creating parent directories.
func Write(path string, state State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	hb, _ := json.Marshal(state.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&state); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// Read loads a state written by Write.
func Read(path string) (State, error) {
	var state State
	f, err := os.Open(path)
	if err != nil {
		return state, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return state, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return state, fmt.Errorf("read header: %w", err)
	}
	var hdr Header
	if err := json.Unmarshal(line, &hdr); err != nil {
		return state, fmt.Errorf("parse header: %w", err)
	}
	if hdr.Version != Version {
		return state, fmt.Errorf("%w: %d", ErrVersion, hdr.Version)
	}

	if err := gob.NewDecoder(br).Decode(&state); err != nil {
		return state, fmt.Errorf("gob decode: %w", err)
	}
	return state, nil
}

// ReadHeader returns only the header line of a snapshot.
func ReadHeader(path string) (Header, error) {
	var hdr Header
	f, err := os.Open(path)
	if err != nil {
		return hdr, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return hdr, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return hdr, fmt.Errorf("parse header: %w", err)
	}
	return hdr, nil
}
