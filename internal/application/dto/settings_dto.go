package dto

// SettingValueRequest alta o baja de un valor de vocabulario.
type SettingValueRequest struct {
	Value string `json:"value"`
}

// SettingsResponse vocabulario completo tras la operación.
type SettingsResponse struct {
	Values []string `json:"values"`
}
