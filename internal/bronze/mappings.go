package bronze

import (
	_ "embed"
	"os"
	"slices"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed mappings.yaml
var defaultMappingsYAML []byte

// Canonical column names of the raw tables.
const (
	ColProductID = "product_id"
	ColPrice     = "price"
	ColDate      = "date"
	ColClient    = "client"
	ColGrade     = "grade"
	ColComment   = "comment"
)

var (
	saleColumns   = []string{ColProductID, ColPrice, ColDate, ColClient}
	reviewColumns = []string{ColGrade, ColComment, ColProductID}
)

// Mapping is one named raw schema variant: canonical column → source column.
type Mapping struct {
	Name        string            `yaml:"name"`
	Columns     map[string]string `yaml:"columns"`
	Optional    []string          `yaml:"optional"`
	DateLayouts []string          `yaml:"date_layouts"`
}

// Mappings holds the ordered variants for each raw input kind.
type Mappings struct {
	Sales   []Mapping `yaml:"sales"`
	Reviews []Mapping `yaml:"reviews"`
}

// DefaultMappings returns the built-in schema variants.
func DefaultMappings() *Mappings {
	m, err := ParseMappings(defaultMappingsYAML)
	if err != nil {
		panic(err) // embedded file is covered by tests
	}
	return m
}

// LoadMappings reads schema variants from a YAML file.
func LoadMappings(path string) (*Mappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "bronze: read mappings %s", path)
	}
	return ParseMappings(data)
}

// ParseMappings decodes and validates schema variants.
func ParseMappings(data []byte) (*Mappings, error) {
	var m Mappings
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "bronze: decode mappings")
	}
	if err := validate(m.Sales, saleColumns, "sales"); err != nil {
		return nil, err
	}
	if err := validate(m.Reviews, reviewColumns, "reviews"); err != nil {
		return nil, err
	}
	return &m, nil
}

func validate(ms []Mapping, canonical []string, kind string) error {
	if len(ms) == 0 {
		return eris.Errorf("bronze: no %s mappings", kind)
	}
	for _, m := range ms {
		if m.Name == "" {
			return eris.Errorf("bronze: unnamed %s mapping", kind)
		}
		for col := range m.Columns {
			if !slices.Contains(canonical, col) {
				return eris.Errorf("bronze: %s mapping %q: unknown column %q", kind, m.Name, col)
			}
		}
		for _, col := range canonical {
			if _, ok := m.Columns[col]; !ok && !slices.Contains(m.Optional, col) {
				return eris.Errorf("bronze: %s mapping %q: column %q not mapped", kind, m.Name, col)
			}
		}
	}
	return nil
}

// Match returns the first mapping whose required source columns all appear
// in header, together with canonical column → header index.
func Match(ms []Mapping, header []string) (*Mapping, map[string]int, bool) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := NormalizeName(h)
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	for i := range ms {
		m := &ms[i]
		idx := make(map[string]int, len(m.Columns))
		ok := true
		for canon, src := range m.Columns {
			p, found := pos[NormalizeName(src)]
			if found {
				idx[canon] = p
				continue
			}
			if !slices.Contains(m.Optional, canon) {
				ok = false
				break
			}
		}
		if ok {
			return m, idx, true
		}
	}
	return nil, nil, false
}

// NormalizeName folds a column or key name for matching: "Id Produit",
// "id-produit" and "ID_PRODUIT" all become "id_produit", "Catégorie" becomes
// "categorie".
func NormalizeName(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, s)
}
