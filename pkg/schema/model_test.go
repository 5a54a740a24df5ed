package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fooBarSpecs() []ClassSpec {
	return []ClassSpec{
		{Name: "Foo", Attrs: []Properties{
			{"name": "i", "type": "int", "min": "0", "max": "10", "default": "2"},
			{"name": "s", "type": "string", "max": "5", "default": "5"},
			{"name": "bars", "type": "list of Bar"},
		}},
		{Name: "Bar", Attrs: []Properties{
			{"name": "foo", "type": "Foo"},
			{"name": "x", "type": "int"},
		}},
	}
}

func TestBuildModel_FooBar(t *testing.T) {
	m, err := BuildModel("Test", fooBarSpecs(), Settings{})
	require.NoError(t, err)

	foo := m.MustClass("Foo")
	bar := m.MustClass("Bar")
	assert.Equal(t, 1, foo.ID)
	assert.Equal(t, 2, bar.ID)
	assert.Equal(t, "Test", m.Settings.Database)
	assert.Equal(t, "serialNum", foo.SerialColumn())

	i, ok := foo.Attr("i")
	require.True(t, ok)
	assert.Equal(t, int64(2), i.DefaultValue())
	s, _ := foo.Attr("s")
	assert.Equal(t, "5", s.DefaultValue())

	bars, _ := foo.Attr("bars")
	assert.Equal(t, KindList, bars.Kind)
	assert.Same(t, bar, bars.TargetClass())
	assert.Equal(t, "foo", bars.BackRef)
	assert.False(t, bars.HasColumn())

	assert.Equal(t, []string{"i", "s"}, foo.ColumnNames())
	assert.Equal(t, []string{"fooClassId", "fooObjId", "x"}, bar.ColumnNames())
}

func TestBuildModel_Errors(t *testing.T) {
	tests := []struct {
		name  string
		specs []ClassSpec
		want  string
	}{
		{
			name:  "dangling reference",
			specs: []ClassSpec{{Name: "A", Attrs: []Properties{{"name": "b", "type": "Missing"}}}},
			want:  `unknown target class "Missing"`,
		},
		{
			name: "duplicate attribute",
			specs: []ClassSpec{{Name: "A", Attrs: []Properties{
				{"name": "x", "type": "int"},
				{"name": "x", "type": "string"},
			}}},
			want: "duplicate attribute name",
		},
		{
			name: "duplicate inherited attribute",
			specs: []ClassSpec{
				{Name: "A", Attrs: []Properties{{"name": "x", "type": "int"}}},
				{Name: "B", Super: "A", Attrs: []Properties{{"name": "x", "type": "int"}}},
			},
			want: "duplicate attribute name",
		},
		{
			name:  "min greater than max",
			specs: []ClassSpec{{Name: "A", Attrs: []Properties{{"name": "x", "type": "int", "min": "5", "max": "1"}}}},
			want:  "Min 5 is greater than Max 1",
		},
		{
			name:  "duplicate class",
			specs: []ClassSpec{{Name: "A"}, {Name: "A"}},
			want:  "duplicate class name",
		},
		{
			name:  "unknown superclass",
			specs: []ClassSpec{{Name: "A", Super: "Nope"}},
			want:  "unknown superclass",
		},
		{
			name:  "reserved attribute name",
			specs: []ClassSpec{{Name: "A", Attrs: []Properties{{"name": "key", "type": "int"}}}},
			want:  "reserved",
		},
		{
			name:  "default out of range",
			specs: []ClassSpec{{Name: "A", Attrs: []Properties{{"name": "x", "type": "int", "max": "3", "default": "9"}}}},
			want:  "invalid default",
		},
		{
			name:  "enum without labels",
			specs: []ClassSpec{{Name: "A", Attrs: []Properties{{"name": "e", "type": "enum"}}}},
			want:  "no Enums",
		},
		{
			name: "list without back reference",
			specs: []ClassSpec{
				{Name: "A", Attrs: []Properties{{"name": "bs", "type": "list of B"}}},
				{Name: "B"},
			},
			want: "has no reference back",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildModel("M", tt.specs, Settings{})
			require.Error(t, err)
			var me *ModelError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, "M", me.Model)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildModel_DependencyOrder(t *testing.T) {
	specs := []ClassSpec{
		{Name: "Line", Attrs: []Properties{{"name": "order", "type": "Order"}}},
		{Name: "Order", Super: "Doc", Attrs: []Properties{{"name": "lines", "type": "list of Line"}}},
		{Name: "Doc", Abstract: true, Attrs: []Properties{{"name": "title", "type": "string", "max": "20"}}},
		{Name: "Note"},
	}
	m, err := BuildModel("M", specs, Settings{})
	require.NoError(t, err)

	var names []string
	for _, c := range m.OrderedClasses() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Doc", "Order", "Line", "Note"}, names)

	names = nil
	for _, c := range m.ConcreteClasses() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Order", "Line", "Note"}, names)

	order := m.MustClass("Order")
	assert.Equal(t, []string{"title"}, order.ColumnNames())
	assert.True(t, order.IsA(m.MustClass("Doc")))
	assert.Equal(t, []*Class{order}, m.MustClass("Doc").Descendants())
}

func TestBuildModel_Deterministic(t *testing.T) {
	m1, err := BuildModel("M", fooBarSpecs(), Settings{UseHashForClassIDs: true})
	require.NoError(t, err)
	m2, err := BuildModel("M", fooBarSpecs(), Settings{UseHashForClassIDs: true})
	require.NoError(t, err)

	for i, c := range m1.Classes() {
		assert.Equal(t, c.ID, m2.Classes()[i].ID)
		assert.NotZero(t, c.ID)
		got, ok := m1.ClassByID(c.ID)
		require.True(t, ok)
		assert.Same(t, c, got)
	}
}

func TestSettings(t *testing.T) {
	m, err := BuildModel("M", []ClassSpec{{Name: "Item", Attrs: []Properties{{"name": "owner", "type": "Item"}}}}, Settings{
		SQLSerialColumnName:    "{class}Id",
		UseBigIntObjRefColumns: true,
	})
	require.NoError(t, err)
	item := m.MustClass("Item")
	assert.Equal(t, "itemId", item.SerialColumn())
	assert.Equal(t, []string{"ownerId"}, item.ColumnNames())
	assert.Equal(t, len("ownerId"), m.NameWidth())

	_, err = BuildModel("M", nil, Settings{DeleteBehavior: "shred"})
	require.Error(t, err)
}

func TestAccessorNames(t *testing.T) {
	m, err := BuildModel("Test", fooBarSpecs(), Settings{})
	require.NoError(t, err)
	bars, _ := m.MustClass("Foo").Attr("bars")
	assert.Equal(t, "Bars", bars.Getter())
	assert.Equal(t, "SetBars", bars.Setter())
	assert.Equal(t, "AddToBars", bars.AdderName())
	assert.Equal(t, "DelFromBars", bars.RemoverName())
}
