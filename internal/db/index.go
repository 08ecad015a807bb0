package db

import (
	"errors"
	"fmt"
	"strconv"
)

// StorageType is the ON clause of FT.CREATE. Chunks live in hashes.
type StorageType string

// StorageHash indexes Redis hashes.
const StorageHash StorageType = "HASH"

// DistanceMetric is the DISTANCE_METRIC of a vector field.
type DistanceMetric string

// Supported metrics. The chunk index uses cosine.
const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm is the vector index kind.
type VectorAlgorithm string

// HNSW is approximate, FLAT is exact brute force.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// IndexFieldType is the schema type of an indexed field.
type IndexFieldType int

// Field types.
const (
	IndexFieldNumeric IndexFieldType = iota
	IndexFieldTag
	IndexFieldText
	IndexFieldVector
)

// IndexField is one SCHEMA entry.
type IndexField struct {
	Name string
	Type IndexFieldType

	TagCaseSensitive bool

	VectorAlgo        VectorAlgorithm
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int // HNSW only, 0 = engine default
	VectorEFConstruct int // HNSW only, 0 = engine default
	VectorBlockSize   int // FLAT only, 0 = engine default
}

// IndexDefinition describes an FT index over key prefixes.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// Validate reports the first structural problem in the definition.
func (idx *IndexDefinition) Validate() error {
	switch {
	case idx.Name == "":
		return errors.New("index name is required")
	case !IsValidIdentifier(idx.Name):
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	case len(idx.Fields) == 0:
		return errors.New("at least one field is required")
	}

	names := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		names[f.Name] = struct{}{}
		if f.Type == IndexFieldVector && f.VectorDim <= 0 {
			return fmt.Errorf("vector field %s: DIM must be positive", f.Name)
		}
	}
	return nil
}

// CreateArgs renders the definition as FT.CREATE arguments (without the command name).
func (idx *IndexDefinition) CreateArgs() ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	storage := idx.StorageType
	if storage == "" {
		storage = StorageHash
	}
	args := []string{idx.Name, "ON", string(storage)}
	if n := len(idx.Prefixes); n > 0 {
		args = append(args, "PREFIX", strconv.Itoa(n))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fa, err := idx.Fields[i].schemaArgs()
		if err != nil {
			return nil, err
		}
		args = append(args, fa...)
	}
	return args, nil
}

func (f *IndexField) schemaArgs() ([]string, error) {
	switch f.Type {
	case IndexFieldNumeric:
		return []string{f.Name, "NUMERIC"}, nil
	case IndexFieldText:
		return []string{f.Name, "TEXT"}, nil
	case IndexFieldTag:
		if f.TagCaseSensitive {
			return []string{f.Name, "TAG", "CASESENSITIVE"}, nil
		}
		return []string{f.Name, "TAG"}, nil
	case IndexFieldVector:
		return f.vectorArgs(), nil
	default:
		return nil, fmt.Errorf("field %s: unknown type %d", f.Name, f.Type)
	}
}

// vectorArgs emits "name VECTOR ALGO nattrs attrs...". Zero-valued tuning knobs are omitted.
func (f *IndexField) vectorArgs() []string {
	algo, distance := f.VectorAlgo, f.VectorDistance
	if algo == "" {
		algo = VectorFlat
	}
	if distance == "" {
		distance = DistanceCosine
	}

	attrs := []string{"TYPE", "FLOAT32", "DIM", strconv.Itoa(f.VectorDim), "DISTANCE_METRIC", string(distance)}
	opt := func(name string, v int) {
		if v > 0 {
			attrs = append(attrs, name, strconv.Itoa(v))
		}
	}
	if algo == VectorHNSW {
		opt("M", f.VectorM)
		opt("EF_CONSTRUCTION", f.VectorEFConstruct)
	} else {
		opt("BLOCK_SIZE", f.VectorBlockSize)
	}

	return append([]string{f.Name, "VECTOR", string(algo), strconv.Itoa(len(attrs))}, attrs...)
}

// IsValidIdentifier reports whether s is non-empty and made of [a-zA-Z0-9_:-].
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '_', c == ':', c == '-':
		default:
			return false
		}
	}
	return true
}
