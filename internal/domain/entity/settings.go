package entity

// SettingValues es el documento remoto de un vocabulario de ajustes
// (unidades o categorías). El orden de inserción se conserva para la UI.
type SettingValues struct {
	Values []string `json:"values"`
}
