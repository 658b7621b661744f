package repository

// MirrorStore define el puerto de persistencia del espejo local: blobs JSON por
// clave, sobreescritos completos en cada refresco y leídos una vez al arrancar
// para renderizar antes del primer evento en vivo.
type MirrorStore interface {
	// Load deserializa el valor de la clave en v. ErrNotFound si la clave no existe.
	Load(key string, v any) error
	// Save serializa v y sobreescribe el valor de la clave.
	Save(key string, v any) error
}
