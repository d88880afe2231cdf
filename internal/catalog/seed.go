package catalog

// DefaultServices is the catalog used when no database is configured.
func DefaultServices() []Service {
	return []Service{
		{ID: "kine-evaluacion", Specialty: "Kinesiología", Label: "Evaluación kinésica", Code: "KIN-01", Price: 25000},
		{ID: "kine-sesion", Specialty: "Kinesiología", Label: "Sesión de kinesiterapia", Code: "KIN-02", Price: 20000},
		{ID: "fono-evaluacion", Specialty: "Fonoaudiología", Label: "Evaluación fonoaudiológica", Code: "FON-01", Price: 30000},
		{ID: "fono-terapia", Specialty: "Fonoaudiología", Label: "Terapia de lenguaje", Code: "FON-02", Price: 25000},
		{ID: "psico-consulta", Specialty: "Psicología", Label: "Consulta psicológica", Code: "PSI-01", Price: 35000},
		{ID: "nutri-consulta", Specialty: "Nutrición", Label: "Consulta nutricional", Code: "NUT-01", Price: 28000},
	}
}
