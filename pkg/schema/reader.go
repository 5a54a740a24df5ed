package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Files recognized inside a model directory.
const (
	ClassesYAMLFile = "Classes.yaml"
	ClassesCSVFile  = "Classes.csv"
	SettingsFile    = "Settings.yaml"
	SamplesFile     = "Samples.csv"
)

// ReadModel reads a model directory. Classes come from Classes.yaml when
// present, otherwise from Classes.csv; Settings.yaml is optional.
func ReadModel(dir string) (*Model, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	if !info.IsDir() {
		return nil, &ModelError{Model: dir, Msg: "model path is not a directory"}
	}
	name := ModelName(dir)

	settings, err := ReadSettings(filepath.Join(dir, SettingsFile))
	if err != nil {
		return nil, err
	}

	specs, err := readClassSpecs(dir)
	if err != nil {
		var me *ModelError
		if errors.As(err, &me) && me.Model == "" {
			me.Model = name
		}
		return nil, err
	}

	m, err := BuildModel(name, specs, settings)
	if err != nil {
		return nil, err
	}
	m.Dir = dir
	if _, err := os.Stat(filepath.Join(dir, SamplesFile)); err == nil {
		m.SamplesPath = filepath.Join(dir, SamplesFile)
	}
	return m, nil
}

// ModelName derives the model name from its directory, e.g. "Shop" for
// "models/Shop.mkmodel".
func ModelName(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadSettings loads Settings.yaml. A missing file yields zero settings.
func ReadSettings(path string) (Settings, error) {
	var s Settings
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return s, fmt.Errorf("error reading settings file %s: %w", path, err)
	}
	if err := k.Unmarshal("", &s); err != nil {
		return s, fmt.Errorf("unable to decode settings: %w", err)
	}
	return s, nil
}

func readClassSpecs(dir string) ([]ClassSpec, error) {
	yamlPath := filepath.Join(dir, ClassesYAMLFile)
	if f, err := os.Open(yamlPath); err == nil {
		defer func() { _ = f.Close() }()
		return ParseClassesYAML(f)
	}
	csvPath := filepath.Join(dir, ClassesCSVFile)
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, &ModelError{Msg: fmt.Sprintf("no %s or %s in %s", ClassesYAMLFile, ClassesCSVFile, dir)}
	}
	defer func() { _ = f.Close() }()
	return ParseClassesCSV(f)
}

type yamlClass struct {
	Class    string           `yaml:"class"`
	Super    string           `yaml:"super"`
	Abstract bool             `yaml:"abstract"`
	Attrs    []map[string]any `yaml:"attrs"`
}

// ParseClassesYAML parses a list of classes, each with a list of attribute
// property sets:
//
//	- class: Foo
//	  attrs:
//	    - {name: i, type: int, min: 0, max: 10, default: 2}
func ParseClassesYAML(r io.Reader) ([]ClassSpec, error) {
	var raw []yamlClass
	if err := yamlv3.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ModelError{Msg: fmt.Sprintf("invalid %s: %v", ClassesYAMLFile, err)}
	}
	specs := make([]ClassSpec, 0, len(raw))
	for _, rc := range raw {
		spec := ClassSpec{Name: rc.Class, Super: rc.Super, Abstract: rc.Abstract}
		for _, ra := range rc.Attrs {
			props := Properties{}
			for k, v := range ra {
				props[k] = yamlScalar(v)
			}
			spec.Attrs = append(spec.Attrs, props)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func yamlScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = yamlScalar(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}

// ParseClassesCSV parses the row-oriented class format. The first row is the
// header. A row with a Class cell starts a class ("Sub(Super)" names a
// superclass); a row with an Attribute cell adds an attribute to the current
// class. The Extras cell holds "key=value; key=value" pairs.
func ParseClassesCSV(r io.Reader) ([]ClassSpec, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var header []string
	var specs []ClassSpec
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &ModelError{Msg: fmt.Sprintf("%s line %d: %v", ClassesCSVFile, line, err)}
		}
		if isBlankRecord(rec) {
			continue
		}
		if header == nil {
			header = make([]string, len(rec))
			for i, h := range rec {
				header[i] = strings.TrimSpace(h)
			}
			continue
		}

		props := Properties{}
		for i, cell := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if v := cell; strings.TrimSpace(v) != "" {
				props[header[i]] = v
			}
		}
		extras := parseExtras(popProp(props, "extras"))
		className := strings.TrimSpace(popProp(props, "class"))

		if className != "" {
			spec := ClassSpec{Name: className}
			if open := strings.Index(className, "("); open > 0 && strings.HasSuffix(className, ")") {
				spec.Name = strings.TrimSpace(className[:open])
				spec.Super = strings.TrimSpace(className[open+1 : len(className)-1])
			}
			if v, ok := popExtra(extras, "isabstract"); ok {
				spec.Abstract, _ = parseBool(v)
			}
			specs = append(specs, spec)
		}

		if attrName := popProp(props, "attribute"); strings.TrimSpace(attrName) != "" {
			if len(specs) == 0 {
				return nil, &ModelError{Msg: fmt.Sprintf("%s line %d: attribute %s before any class", ClassesCSVFile, line, attrName)}
			}
			props["name"] = attrName
			for k, v := range extras {
				props[k] = v
			}
			cur := &specs[len(specs)-1]
			cur.Attrs = append(cur.Attrs, props)
		}
	}
	return specs, nil
}

func isBlankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func popProp(p Properties, key string) string {
	for k, v := range p {
		if strings.EqualFold(k, key) {
			delete(p, k)
			return v
		}
	}
	return ""
}

func popExtra(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			delete(m, k)
			return v, true
		}
	}
	return "", false
}

func parseExtras(s string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, found := strings.Cut(part, "=")
		if !found {
			out[strings.TrimSpace(k)] = "1"
			continue
		}
		out[strings.TrimSpace(k)] = unquote(strings.TrimSpace(v))
	}
	return out
}
