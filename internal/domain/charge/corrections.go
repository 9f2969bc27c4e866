package charge

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/AAriam/rdkit/internal/domain/substructure"
	"github.com/AAriam/rdkit/pkg/errors"
)

// ChargeCorrection forces every atom matched by Pattern to Charge.
type ChargeCorrection struct {
	Name    string
	Pattern *substructure.Pattern
	Charge  int
}

// ChargeCorrectionEntry is the source form of a ChargeCorrection.
type ChargeCorrectionEntry struct {
	Name   string `yaml:"name" json:"name"`
	SMARTS string `yaml:"smarts" json:"smarts"`
	Charge int    `yaml:"charge" json:"charge"`
}

// NewChargeCorrection compiles smarts into a correction rule.
func NewChargeCorrection(name, smarts string, charge int) (ChargeCorrection, error) {
	p, err := substructure.Compile(smarts)
	if err != nil {
		return ChargeCorrection{}, errors.Wrap(err, errors.ErrCodePatternCompileFailed, "compile charge correction").
			WithDetail(fmt.Sprintf("name=%q", name))
	}
	return ChargeCorrection{Name: name, Pattern: p, Charge: charge}, nil
}

var defaultCorrectionEntries = []ChargeCorrectionEntry{
	{Name: "[Li,Na,K]", SMARTS: "[Li,Na,K;X0+0]", Charge: 1},
	{Name: "[Mg,Ca]", SMARTS: "[Mg,Ca;X0+0]", Charge: 2},
	{Name: "[Cl]", SMARTS: "[Cl;X0+0]", Charge: -1},
}

// DefaultChargeCorrections returns a fresh copy of the standard rules: free
// alkali metals become +1, free Mg and Ca +2 and free chlorine -1.
func DefaultChargeCorrections() []ChargeCorrection {
	out, err := NewChargeCorrections(defaultCorrectionEntries)
	if err != nil {
		panic(err)
	}
	return out
}

// DefaultChargeCorrectionEntries returns the source rows of
// DefaultChargeCorrections.
func DefaultChargeCorrectionEntries() []ChargeCorrectionEntry {
	return append([]ChargeCorrectionEntry(nil), defaultCorrectionEntries...)
}

// NewChargeCorrections compiles entries in order.
func NewChargeCorrections(entries []ChargeCorrectionEntry) ([]ChargeCorrection, error) {
	out := make([]ChargeCorrection, 0, len(entries))
	for _, e := range entries {
		cc, err := NewChargeCorrection(e.Name, e.SMARTS, e.Charge)
		if err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, nil
}

// LoadChargeCorrections reads a YAML list of {name, smarts, charge}.
func LoadChargeCorrections(r io.Reader) ([]ChargeCorrection, error) {
	var entries []ChargeCorrectionEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrCodeCorrectionLoadFailed, "decode charge corrections")
	}
	return NewChargeCorrections(entries)
}
