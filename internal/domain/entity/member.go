package entity

import "time"

// Roles conocidos por la API. Los roles son datos maestros externos; estos se usan para autorización.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleTecnico    = "tecnico"
)

// Member pertenencia de un usuario a una organización con un rol. Proviene del directorio de usuarios
// (fuera de este núcleo); aquí solo se consulta para resolver asignaciones.
type Member struct {
	OrgID     string
	UserID    string
	RoleID    string
	CreatedAt time.Time
}
