package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// ShopClassesCSV is a two-class model: Foo owns a list of Bar, each Bar
// refers back to its Foo.
const ShopClassesCSV = `Class,Attribute,Type,Default,Min,Max,Enums,isIndexed,isRequired,Extras
Foo,,,,,,,,,
,i,int,2,0,10,,1,,
,s,string,5,,5,,,,
,color,enum,red,,,"red, green, blue",,,
,active,bool,1,,,,,,
,when,datetime,,,,,,,
,bars,list of Bar,,,,,,,
Bar,,,,,,,,,
,foo,Foo,,,,,,,
,name,string,,,20,,,,
`

// ShopModel builds the shop model with the given settings.
func ShopModel(t testing.TB, s schema.Settings) *schema.Model {
	t.Helper()
	specs, err := schema.ParseClassesCSV(strings.NewReader(ShopClassesCSV))
	if err != nil {
		t.Fatalf("parse shop classes: %v", err)
	}
	m, err := schema.BuildModel("Shop", specs, s)
	if err != nil {
		t.Fatalf("build shop model: %v", err)
	}
	return m
}

// WriteModelDir writes a Shop.mkmodel directory holding the shop classes
// plus any extra files, and returns its path.
func WriteModelDir(t testing.TB, extra map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Shop.mkmodel")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create model dir: %v", err)
	}
	files := map[string]string{schema.ClassesCSVFile: ShopClassesCSV}
	for name, content := range extra {
		files[name] = content
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
