package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

func TestIndexLookups(t *testing.T) {
	idx := MustNew(DefaultServices())

	s, err := idx.Get("kine-sesion")
	require.NoError(t, err)
	assert.Equal(t, "Kinesiología", s.Specialty)

	byCode, err := idx.ByCode("fon-01")
	require.NoError(t, err)
	assert.Equal(t, "fono-evaluacion", byCode.ID)

	_, err = idx.Get("missing")
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.True(t, apperr.IsNotFound(err))

	assert.Len(t, idx.BySpecialty("kinesiología"), 2)
	assert.Equal(t, []string{"Fonoaudiología", "Kinesiología", "Nutrición", "Psicología"}, idx.Specialties())
	assert.True(t, idx.Has("psico-consulta"))
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Service{{ID: "a", Code: "X"}, {ID: "a", Code: "Y"}})
	assert.Error(t, err)

	_, err = New([]Service{{ID: "a", Code: "X"}, {ID: "b", Code: "x"}})
	assert.Error(t, err)

	_, err = New([]Service{{ID: " ", Label: "blank"}})
	assert.Error(t, err)
}

func TestListOrdering(t *testing.T) {
	idx := MustNew([]Service{
		{ID: "3", Specialty: "B", Label: "a"},
		{ID: "1", Specialty: "A", Label: "z"},
		{ID: "2", Specialty: "A", Label: "b"},
	})
	var ids []string
	for _, s := range idx.List() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"2", "1", "3"}, ids)
}

func TestLoadFromPostgres(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"id", "specialty", "label", "code", "price"}).
		AddRow("psico-consulta", "Psicología", "Consulta psicológica", "PSI-01", int64(35000))
	mock.ExpectQuery("SELECT id, specialty, label, code, price").WillReturnRows(rows)

	idx, err := LoadFromPostgres(context.Background(), mock)
	require.NoError(t, err)
	s, err := idx.Get("psico-consulta")
	require.NoError(t, err)
	assert.Equal(t, int64(35000), s.Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFromPostgresTransientError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, specialty").WillReturnError(errors.New("connection refused"))

	_, err = LoadFromPostgres(context.Background(), mock)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}
