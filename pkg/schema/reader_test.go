package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const classesCSV = `Class,Attribute,Type,Default,Min,Max,Enums,isIndexed,isRequired,Extras
Foo,,,,,,,,,
,i,int,2,0,10,,1,,
,s,string,5,,5,,,,
,color,enum,red,,,"red, green",,,
,bars,list of Bar,,,,,,,
# comment rows are skipped
Bar,,,,,,,,,
,foo,Foo,,,,,,,onDeleteOther=cascade
,when,datetime,,,,,,,
Shape,,,,,,,,,isAbstract=1
Circle(Shape),,,,,,,,,
,radius,float,,0,,,,,
`

const classesYAML = `
- class: Foo
  attrs:
    - {name: i, type: int, default: 2, min: 0, max: 10, isIndexed: true}
    - {name: s, type: string, default: "5", max: 5}
    - {name: color, type: enum, default: red, enums: [red, green]}
    - {name: bars, type: list of Bar}
- class: Bar
  attrs:
    - {name: foo, type: Foo, onDeleteOther: cascade}
    - {name: when, type: datetime}
- class: Shape
  abstract: true
- class: Circle
  super: Shape
  attrs:
    - {name: radius, type: float, min: 0}
`

const settingsYAML = `
database: shopdb
sql_serial_column_name: "{class}Id"
starting_serial_num: 100
external_enums: true
`

func writeModelDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Shop.mkmodel")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestReadModel_CSV(t *testing.T) {
	dir := writeModelDir(t, map[string]string{
		ClassesCSVFile: classesCSV,
		SettingsFile:   settingsYAML,
	})

	m, err := ReadModel(dir)
	require.NoError(t, err)
	assertShopModel(t, m)
	assert.Equal(t, dir, m.Dir)
	assert.Empty(t, m.SamplesPath)
}

func TestReadModel_YAML(t *testing.T) {
	dir := writeModelDir(t, map[string]string{
		ClassesYAMLFile: classesYAML,
		SettingsFile:    settingsYAML,
		SamplesFile:     "Foo objects\n",
	})

	m, err := ReadModel(dir)
	require.NoError(t, err)
	assertShopModel(t, m)
	assert.Equal(t, filepath.Join(dir, SamplesFile), m.SamplesPath)
}

func assertShopModel(t *testing.T, m *Model) {
	t.Helper()
	assert.Equal(t, "Shop", m.Name)
	assert.Equal(t, "shopdb", m.Settings.Database)
	assert.Equal(t, int64(100), m.Settings.StartingSerialNum)
	assert.True(t, m.Settings.ExternalEnums)

	foo := m.MustClass("Foo")
	assert.Equal(t, "fooId", foo.SerialColumn())
	i, _ := foo.Attr("i")
	assert.True(t, i.Indexed)
	assert.Equal(t, int64(2), i.DefaultValue())
	color, _ := foo.Attr("color")
	assert.Equal(t, []string{"red", "green"}, color.Enums)
	assert.Equal(t, "red", color.DefaultValue())

	bar := m.MustClass("Bar")
	fooRef, _ := bar.Attr("foo")
	assert.Equal(t, DeleteCascade, fooRef.OnDeleteOther)
	assert.Equal(t, DeleteDetach, fooRef.OnDeleteSelf)

	assert.True(t, m.MustClass("Shape").Abstract)
	circle := m.MustClass("Circle")
	assert.Same(t, m.MustClass("Shape"), circle.Super())
	assert.Len(t, m.ConcreteClasses(), 3)
}

func TestReadModel_Idempotent(t *testing.T) {
	dir := writeModelDir(t, map[string]string{ClassesCSVFile: classesCSV})
	m1, err := ReadModel(dir)
	require.NoError(t, err)
	m2, err := ReadModel(dir)
	require.NoError(t, err)

	require.Len(t, m2.Classes(), len(m1.Classes()))
	for i, c := range m1.Classes() {
		c2 := m2.Classes()[i]
		assert.Equal(t, c.Name, c2.Name)
		assert.Equal(t, c.ID, c2.ID)
		assert.Equal(t, c.ColumnNames(), c2.ColumnNames())
	}
}

func TestReadModel_Errors(t *testing.T) {
	_, err := ReadModel(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	dir := writeModelDir(t, map[string]string{})
	_, err = ReadModel(dir)
	var me *ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "Shop", me.Model)

	dir = writeModelDir(t, map[string]string{
		ClassesCSVFile: "Class,Attribute,Type\n,orphan,int\n",
	})
	_, err = ReadModel(dir)
	require.ErrorAs(t, err, &me)
	assert.Contains(t, err.Error(), "before any class")
}

func TestParseExtras(t *testing.T) {
	got := parseExtras(`isAbstract=1; label="Full name"; flag`)
	assert.Equal(t, map[string]string{"isAbstract": "1", "label": "Full name", "flag": "1"}, got)
}

func TestParseClassesYAML_Empty(t *testing.T) {
	specs, err := ParseClassesYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, specs)
}
