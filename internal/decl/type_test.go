package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpelling(t *testing.T) {
	tests := []struct {
		spelling string
		check    func(t *testing.T, ty *Type)
	}{
		{"int", func(t *testing.T, ty *Type) {
			assert.Equal(t, TypeInt, ty.Kind)
		}},
		{"unsigned long long", func(t *testing.T, ty *Type) {
			assert.Equal(t, TypeULongLong, ty.Kind)
		}},
		{"long unsigned int", func(t *testing.T, ty *Type) {
			assert.Equal(t, TypeULong, ty.Kind, "specifier order does not matter")
		}},
		{"int64_t", func(t *testing.T, ty *Type) {
			assert.Equal(t, TypeLongLong, ty.Kind)
		}},
		{"const char *", func(t *testing.T, ty *Type) {
			require.Equal(t, TypePointer, ty.Kind)
			assert.False(t, ty.Const)
			assert.Equal(t, TypeChar, ty.Elem.Kind)
			assert.True(t, ty.Elem.Const)
		}},
		{"char * const", func(t *testing.T, ty *Type) {
			require.Equal(t, TypePointer, ty.Kind)
			assert.True(t, ty.Const)
			assert.False(t, ty.Elem.Const)
		}},
		{"const char **", func(t *testing.T, ty *Type) {
			require.Equal(t, TypePointer, ty.Kind)
			require.Equal(t, TypePointer, ty.Elem.Kind)
			assert.Equal(t, TypeChar, ty.Elem.Elem.Kind)
		}},
		{"char[32]", func(t *testing.T, ty *Type) {
			require.Equal(t, TypeConstantArray, ty.Kind)
			assert.Equal(t, 32, ty.Len)
			assert.Equal(t, TypeChar, ty.Elem.Kind)
		}},
		{"char *[]", func(t *testing.T, ty *Type) {
			require.Equal(t, TypeIncompleteArray, ty.Kind)
			assert.Equal(t, TypePointer, ty.Elem.Kind)
		}},
		{"const YDOrder &", func(t *testing.T, ty *Type) {
			require.Equal(t, TypeLValueReference, ty.Kind)
			assert.Equal(t, TypeUnknown, ty.Elem.Kind, "named types wait for resolution")
			assert.Equal(t, "YDOrder", ty.Elem.Decl)
			assert.True(t, ty.Elem.Const)
		}},
		{"struct YDOrder *", func(t *testing.T, ty *Type) {
			require.Equal(t, TypePointer, ty.Kind)
			assert.Equal(t, "YDOrder", ty.Elem.Decl)
		}},
		{"::YDApi::ConnectionState", func(t *testing.T, ty *Type) {
			assert.Equal(t, "YDApi::ConnectionState", ty.Decl)
		}},
		{"void (*)(int)", func(t *testing.T, ty *Type) {
			assert.Equal(t, TypeFunctionPointer, ty.Kind)
		}},
		{"char[0]", func(t *testing.T, ty *Type) {
			assert.Equal(t, TypeUnknown, ty.Kind)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.spelling, func(t *testing.T) {
			ty := parseSpelling(tt.spelling)
			require.NotNil(t, ty)
			tt.check(t, ty)
		})
	}
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "const char *", parseSpelling("const char *").String())
	assert.Equal(t, "char *", (&Type{Kind: TypePointer, Elem: &Type{Kind: TypeChar}}).String())
	assert.Equal(t, "const YDOrder &", (&Type{Kind: TypeLValueReference, Elem: &Type{Kind: TypeRecord, Decl: "YDOrder", Const: true}}).String())
	assert.Equal(t, "int[4]", (&Type{Kind: TypeConstantArray, Len: 4, Elem: &Type{Kind: TypeInt}}).String())
}

func TestResolveKeepsConst(t *testing.T) {
	underlying := &Type{Kind: TypeInt}
	td := &Type{Kind: TypeTypedef, Decl: "YDOrderRef", Underlying: underlying, Const: true}

	r := td.Resolve()
	assert.Equal(t, TypeInt, r.Kind)
	assert.True(t, r.Const)
	assert.False(t, underlying.Const, "the underlying type is not modified")
}
