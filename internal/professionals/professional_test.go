package professionals

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

func TestStringListDecodesCSVOrList(t *testing.T) {
	var fromCSV, fromList Professional
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p1","servicios":"kine-sesion, kine-evaluacion,,kine-sesion"}`), &fromCSV))
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p1","servicios":["kine-sesion","kine-evaluacion"]}`), &fromList))

	want := StringList{"kine-evaluacion", "kine-sesion"}
	assert.Equal(t, want, fromCSV.Services)
	assert.Equal(t, want, fromList.Services)

	var bad Professional
	assert.Error(t, json.Unmarshal([]byte(`{"servicios":42}`), &bad))
}

func TestStringListEncodesEmptyAsArray(t *testing.T) {
	out, err := json.Marshal(Professional{ID: "p1"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"especialidades":[]`)
}

func TestQualifiedForUsesServiceIDsOnly(t *testing.T) {
	p := Professional{ID: "p1", Services: StringList{"psico-consulta"}}
	assert.True(t, p.QualifiedFor("psico-consulta"))
	assert.False(t, p.QualifiedFor("psico"))
	assert.False(t, p.QualifiedFor("consulta"))
}

func TestValidate(t *testing.T) {
	known := func(id string) bool { return id == "kine-sesion" }

	assert.NoError(t, Professional{FullName: "Ana", Services: StringList{"kine-sesion"}}.Validate(known))

	err := Professional{Services: StringList{"unknown"}}.Validate(known)
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, ae.Fields, "nombreCompleto")
	assert.Contains(t, ae.Fields, "servicios")
}

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory(
		Professional{ID: "p2", FullName: "Bruno Soto", Services: StringList{"kine-sesion"}},
		Professional{ID: "p1", FullName: "Ana Rojas", Services: StringList{"kine-sesion", "kine-evaluacion"}},
		Professional{ID: "p3", FullName: "Carla Díaz", Services: StringList{"psico-consulta"}},
	)

	qualified, err := dir.Qualified(ctx, "kine-sesion")
	require.NoError(t, err)
	require.Len(t, qualified, 2)
	assert.Equal(t, "p1", qualified[0].ID)
	assert.Equal(t, "p2", qualified[1].ID)

	none, err := dir.Qualified(ctx, "nutri-consulta")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = dir.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrProfessionalNotFound)

	created, err := dir.Create(ctx, Professional{FullName: "Diego", Services: StringList{"b", "a", "a"}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, StringList{"a", "b"}, created.Services)

	_, err = dir.Create(ctx, Professional{ID: "p1"})
	assert.ErrorIs(t, err, ErrDuplicateProfessional)

	all, err := dir.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
