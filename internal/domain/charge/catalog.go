package charge

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"github.com/AAriam/rdkit/internal/domain/substructure"
	"github.com/AAriam/rdkit/pkg/errors"
)

//go:embed data/acid_base_pairs.txt
var defaultAcidBasePairs []byte

// AcidBaseEntry is the source form of a catalog row.
type AcidBaseEntry struct {
	Name string `yaml:"name" json:"name"`
	Acid string `yaml:"acid" json:"acid"`
	Base string `yaml:"base" json:"base"`
}

// AcidBasePair holds the compiled protonated (Acid) and ionized (Base)
// forms of one functional group. The site atom of either form is the last
// atom of its match.
type AcidBasePair struct {
	Name string
	Acid *substructure.Pattern
	Base *substructure.Pattern
}

// AcidBaseCatalog is an ordered, immutable list of acid/base pairs. Rank 0
// is the strongest acid.
type AcidBaseCatalog struct {
	pairs   []AcidBasePair
	entries []AcidBaseEntry
}

// NewAcidBaseCatalog compiles entries in order. Any pattern that fails to
// compile fails the whole catalog.
func NewAcidBaseCatalog(entries []AcidBaseEntry) (*AcidBaseCatalog, error) {
	c := &AcidBaseCatalog{
		pairs:   make([]AcidBasePair, 0, len(entries)),
		entries: make([]AcidBaseEntry, 0, len(entries)),
	}
	for i, e := range entries {
		acid, err := substructure.Compile(e.Acid)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePatternCompileFailed, "compile acid pattern").
				WithDetail(fmt.Sprintf("entry=%d name=%q", i, e.Name))
		}
		base, err := substructure.Compile(e.Base)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePatternCompileFailed, "compile base pattern").
				WithDetail(fmt.Sprintf("entry=%d name=%q", i, e.Name))
		}
		c.pairs = append(c.pairs, AcidBasePair{Name: e.Name, Acid: acid, Base: base})
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// LoadAcidBaseCatalog reads tab-separated "name<TAB>acid<TAB>base" rows.
// Blank lines and lines starting with "//" are ignored.
func LoadAcidBaseCatalog(r io.Reader) (*AcidBaseCatalog, error) {
	entries, err := parseAcidBaseTSV(r)
	if err != nil {
		return nil, err
	}
	return NewAcidBaseCatalog(entries)
}

func parseAcidBaseTSV(r io.Reader) ([]AcidBaseEntry, error) {
	var entries []AcidBaseEntry
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != 3 {
			return nil, errors.New(errors.ErrCodeCatalogInvalid, "acid/base row must have 3 tab-separated columns").
				WithDetail(fmt.Sprintf("line=%d columns=%d", lineNo, len(cols)))
		}
		e := AcidBaseEntry{
			Name: strings.TrimSpace(cols[0]),
			Acid: strings.TrimSpace(cols[1]),
			Base: strings.TrimSpace(cols[2]),
		}
		if e.Acid == "" || e.Base == "" {
			return nil, errors.New(errors.ErrCodeCatalogInvalid, "acid/base row has an empty pattern").
				WithDetail(fmt.Sprintf("line=%d", lineNo))
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogLoadFailed, "read acid/base catalog")
	}
	return entries, nil
}

// LoadAcidBaseCatalogYAML reads a YAML list of {name, acid, base}.
func LoadAcidBaseCatalogYAML(r io.Reader) (*AcidBaseCatalog, error) {
	var entries []AcidBaseEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogInvalid, "decode acid/base catalog")
	}
	return NewAcidBaseCatalog(entries)
}

// LoadAcidBaseCatalogFile loads a catalog from path. ".yaml" and ".yml"
// files are YAML, anything else is TSV; a trailing ".gz" is decompressed
// first.
func LoadAcidBaseCatalogFile(path string) (*AcidBaseCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogLoadFailed, "open acid/base catalog").
			WithDetail(path)
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if strings.EqualFold(filepath.Ext(name), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCatalogLoadFailed, "open gzip stream").
				WithDetail(path)
		}
		defer zr.Close()
		r = zr
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return LoadAcidBaseCatalogYAML(r)
	default:
		return LoadAcidBaseCatalog(r)
	}
}

// DefaultAcidBaseCatalog returns a fresh copy of the built-in catalog.
func DefaultAcidBaseCatalog() (*AcidBaseCatalog, error) {
	return LoadAcidBaseCatalog(bytes.NewReader(defaultAcidBasePairs))
}

// DefaultAcidBaseEntries returns the rows of the built-in catalog.
func DefaultAcidBaseEntries() []AcidBaseEntry {
	entries, err := parseAcidBaseTSV(bytes.NewReader(defaultAcidBasePairs))
	if err != nil {
		panic(err)
	}
	return entries
}

// Len returns the number of pairs.
func (c *AcidBaseCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.pairs)
}

// Pair returns the pair at rank.
func (c *AcidBaseCatalog) Pair(rank int) AcidBasePair { return c.pairs[rank] }

// Pairs returns a copy of the pairs in rank order.
func (c *AcidBaseCatalog) Pairs() []AcidBasePair {
	out := make([]AcidBasePair, len(c.pairs))
	copy(out, c.pairs)
	return out
}

// Entries returns a copy of the source rows in rank order.
func (c *AcidBaseCatalog) Entries() []AcidBaseEntry {
	out := make([]AcidBaseEntry, len(c.entries))
	copy(out, c.entries)
	return out
}
