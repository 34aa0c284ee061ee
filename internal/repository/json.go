package repository

import (
	"encoding/json"

	"example.com/spendshare/internal/models"
)

func marshalShareSettings(settings *models.ShareSettings) ([]byte, error) {
	if settings == nil {
		return nil, nil
	}
	return json.Marshal(settings)
}

func unmarshalShareSettings(raw []byte) (*models.ShareSettings, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var settings models.ShareSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func marshalPermissions(permissions models.Permissions) ([]byte, error) {
	return json.Marshal(permissions)
}

func unmarshalPermissions(raw []byte) (models.Permissions, error) {
	var permissions models.Permissions
	if len(raw) == 0 {
		return permissions, nil
	}

	if err := json.Unmarshal(raw, &permissions); err != nil {
		return permissions, err
	}
	return permissions, nil
}
