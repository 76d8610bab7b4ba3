// Copyright © 2024 The ELPS authors

package ast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Valid(t *testing.T) {
	name, err := New(Name, At(1, 4), Fields{"id": "fu", "ctx": Load})
	require.NoError(t, err)
	assert.Equal(t, Name, name.Kind)
	assert.Equal(t, "fu", name.Str("id"))
	assert.Equal(t, Load, name.Ctx())

	expr, err := New(Expr, At(1, 0), Fields{"value": name})
	require.NoError(t, err)
	assert.Same(t, name, expr.Child("value"))
}

func TestNew_Errors(t *testing.T) {
	name := Must(Name, At(1, 0), Fields{"id": "x"})
	tests := []struct {
		name   string
		kind   Kind
		fields Fields
		field  string
	}{
		{"unknown kind", Invalid, nil, ""},
		{"undeclared field", Name, Fields{"id": "x", "bogus": 1}, "bogus"},
		{"wrong scalar type", Name, Fields{"id": 3}, "id"},
		{"missing required string", Name, Fields{}, "id"},
		{"missing required node", Expr, Fields{}, "value"},
		{"typed nil required node", Expr, Fields{"value": (*Node)(nil)}, "value"},
		{"node where list expected", Module, Fields{"body": name}, "body"},
		{"nil list element", Module, Fields{"body": []*Node{name, nil}}, "body"},
		{"strings type", Global, Fields{"names": "x"}, "names"},
		{"int type", ImportFrom, Fields{"level": "1"}, "level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.kind, At(2, 0), tt.fields)
			require.Error(t, err)
			var aerr *Error
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, tt.field, aerr.Field)
		})
	}
}

func TestOptionalFieldsReadAsZero(t *testing.T) {
	ret := Must(Return, At(3, 4), nil)
	assert.Nil(t, ret.Child("value"))
	assert.False(t, ret.Has("value"))

	from := Must(ImportFrom, At(1, 0), Fields{"names": []*Node{Must(Alias, Pos{}, Fields{"name": "*"})}})
	assert.Equal(t, "", from.Str("module"))
	assert.Equal(t, 0, from.Int("level"))
	assert.Len(t, from.List("names"), 1)

	// Accessors of the wrong type never panic.
	assert.Nil(t, from.List("module"))
	assert.Nil(t, from.Strs("names"))

	var nilNode *Node
	assert.Nil(t, nilNode.Child("x"))
	assert.Equal(t, "", nilNode.Str("x"))
}

func TestMustPanics(t *testing.T) {
	assert.Panics(t, func() { Must(Name, At(1, 0), nil) })
}

func TestFieldNamesInSchemaOrder(t *testing.T) {
	target := Must(Name, At(1, 4), Fields{"id": "a", "ctx": Store})
	iter := Must(Name, At(1, 9), Fields{"id": "b"})
	loop := Must(For, At(1, 0), Fields{
		"body":   []*Node{Must(Pass, At(1, 12), nil)},
		"iter":   iter,
		"target": target,
	})
	assert.Equal(t, []string{"target", "iter", "body"}, loop.FieldNames())
}

func TestKindNames(t *testing.T) {
	for k := Invalid + 1; k < numKinds; k++ {
		name := k.String()
		require.NotEmpty(t, name, "kind %d has no name", k)
		got, ok := KindByName(name)
		require.True(t, ok)
		assert.Equal(t, k, got)
	}
	assert.True(t, Import.IsStatement())
	assert.False(t, Name.IsStatement())
	assert.False(t, Invalid.Valid())
}

func TestPosBefore(t *testing.T) {
	assert.True(t, At(1, 5).Before(At(2, 0)))
	assert.True(t, At(2, 1).Before(At(2, 3)))
	assert.False(t, At(2, 3).Before(At(2, 3)))
}
