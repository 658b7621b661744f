package entity

import "time"

// User representa un usuario autenticado. Todos los materiales y productos
// están acotados a su espacio.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
