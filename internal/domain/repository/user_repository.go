package repository

import "github.com/tu-usuario/taller-api/internal/domain/entity"

// UserRepository define el puerto de persistencia de usuarios (auth).
type UserRepository interface {
	Create(user *entity.User) error
	// FindByEmail devuelve nil, nil si no existe.
	FindByEmail(email string) (*entity.User, error)
	// GetByID devuelve nil, nil si no existe.
	GetByID(id string) (*entity.User, error)
}
