package records_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchmedia/pewsync/pkg/records"
)

func TestNameKey(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"case differences", "Andy Snider", "andy snider", true},
		{"whitespace differences", "  Andy   Snider ", "Andy Snider", true},
		{"tabs and newlines", "Andy\tSnider\n", "andy snider", true},
		{"different people", "Andy Snider", "Andrew Snider", false},
		{"unicode case", "ÉLISE", "élise", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.same, records.NameKey(tt.a) == records.NameKey(tt.b))
		})
	}
}

func TestKeysArePure(t *testing.T) {
	assert.Equal(t, records.IDKey(" SUB-42 "), records.IDKey("SUB-42"))
	assert.Equal(t, records.NaturalKey("SUB-42"), records.IDKey("SUB-42"))
	assert.NotEqual(t, records.JoinKey("a", "", "b"), records.JoinKey("a", "b"))
	assert.Equal(t, records.JoinKey("title", "2024-05-01"), records.JoinKey(" title ", "2024-05-01"))
	assert.True(t, records.IDKey("  ").IsZero())
}

func TestNormalizeNameKeepsCase(t *testing.T) {
	assert.Equal(t, "Josh de Koning", records.NormalizeName("  Josh   de Koning "))
}

func TestFieldsOrder(t *testing.T) {
	f := records.NewFields("name", "Alpha", "slug", "alpha", "date", "2024-01-01")
	f = f.Set("slug", "alpha-2")
	f = f.Set("extra", 1)

	assert.Equal(t, []string{"name", "slug", "date", "extra"}, f.Names())
	assert.Equal(t, "alpha-2", f.String("slug"))
	assert.Equal(t, "1", f.String("extra"))
	assert.Equal(t, "", f.String("missing"))

	trimmed := f.Delete("slug")
	assert.Equal(t, []string{"name", "date", "extra"}, trimmed.Names())
	assert.True(t, f.Has("slug"), "delete must not alter the receiver")
}

func TestFieldsJSONKeepsOrder(t *testing.T) {
	f := records.NewFields("zeta", 1, "alpha", "a", "mid", []any{"x"})

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":"a","mid":["x"]}`, string(data))

	var decoded records.Fields
	require.NoError(t, json.Unmarshal([]byte(`{"c":3,"a":"x","b":{"n":1.5}}`), &decoded))
	assert.Equal(t, []string{"c", "a", "b"}, decoded.Names())
	v, _ := decoded.Get("c")
	assert.Equal(t, int64(3), v)
	nested, _ := decoded.Get("b")
	assert.Equal(t, map[string]any{"n": 1.5}, nested)
}

func TestFieldsUnmarshalRejectsNonObject(t *testing.T) {
	var f records.Fields
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &f))
	require.NoError(t, json.Unmarshal([]byte(`null`), &f))
	assert.Nil(t, f)
}

func TestSchemaFieldSet(t *testing.T) {
	s := records.NewSchema("name", "slug", "", "name")
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("slug"))
	assert.False(t, s.Has(""))
	assert.Equal(t, []string{"name", "slug"}, s.Names())
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "create", records.OpCreate.String())
	assert.Equal(t, "update", records.OpUpdate.String())
	assert.Equal(t, "unknown", records.Op(9).String())
}
