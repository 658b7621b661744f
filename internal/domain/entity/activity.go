package entity

import "time"

// Activity es una entrada legible del registro de actividad (creaciones,
// repeticiones, cancelaciones). Es un sumidero: su fallo nunca bloquea la
// mutación que la origina.
type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`    // titular del evento
	Details   string    `json:"details"` // detalle opcional (materiales y cantidades)
	Timestamp time.Time `json:"timestamp"`
}
