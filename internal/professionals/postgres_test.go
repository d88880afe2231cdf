package professionals

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/apperr"
)

var professionalColumns = []string{"id", "full_name", "email", "specialties", "services"}

func TestPostgresDirectoryQualified(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(professionalColumns).
		AddRow("p1", "Ana Rojas", "ana@clinica.cl", "{Kinesiología}", "{kine-evaluacion,kine-sesion}").
		AddRow("p2", "Bruno Soto", nil, "{}", "{kine-sesion}")
	mock.ExpectQuery(`WHERE \$1 = ANY\(services\)`).WithArgs("kine-sesion").WillReturnRows(rows)

	dir := NewPostgresDirectory(db)
	got, err := dir.Qualified(context.Background(), "kine-sesion")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, StringList{"kine-evaluacion", "kine-sesion"}, got[0].Services)
	assert.Equal(t, "ana@clinica.cl", got[0].Email)
	assert.Empty(t, got[1].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectoryGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`WHERE id = \$1`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err = NewPostgresDirectory(db).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProfessionalNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO professionals").
		WithArgs("p9", "Eva Muñoz", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := NewPostgresDirectory(db).Create(context.Background(), Professional{
		ID: "p9", FullName: "Eva Muñoz", Services: StringList{"psico-consulta"},
	})
	require.NoError(t, err)
	assert.Equal(t, "p9", p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectoryTransientError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, full_name").WillReturnError(errors.New("broken pipe"))

	_, err = NewPostgresDirectory(db).List(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}
