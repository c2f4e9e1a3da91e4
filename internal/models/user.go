package models

import "strings"

// Cargo values as stored by the backend (compared case-insensitively).
const (
	CargoAdministrador = "administrador"
	CargoDispatcher    = "dispatcher"
	CargoConductor     = "conductor"
	CargoMecanico      = "mecanico"
)

// User is the authenticated operator as returned by /auth/me.
type User struct {
	ID      ID     `json:"id"`
	Nombre  string `json:"nombre"`
	Correo  string `json:"correo"`
	Rut     string `json:"rut,omitempty"`
	Cargo   string `json:"cargo"`
	Estatus string `json:"estatus,omitempty"`
}

// CanWrite reports whether the role may create/edit/delete. It only drives
// what the console offers; the backend enforces authorization.
func (u User) CanWrite() bool {
	switch strings.ToLower(u.Cargo) {
	case CargoAdministrador, CargoDispatcher:
		return true
	}
	return false
}

func (u User) IsAdmin() bool {
	return strings.ToLower(u.Cargo) == CargoAdministrador
}

// DisplayName is nombre, or correo when nombre is empty.
func (u User) DisplayName() string {
	if u.Nombre != "" {
		return u.Nombre
	}
	return u.Correo
}
