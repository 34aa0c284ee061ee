package repository

import (
	"testing"

	"example.com/spendshare/internal/models"
)

// TestShareSettingsRoundTrip проверяет сериализацию настроек доступа.
func TestShareSettingsRoundTrip(t *testing.T) {
	raw, err := marshalShareSettings(&models.ShareSettings{AllowView: true, AllowEdit: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	settings, err := unmarshalShareSettings(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if settings == nil || !settings.AllowView || !settings.AllowEdit || settings.AllowDelete {
		t.Fatalf("unexpected settings %+v", settings)
	}
}

// TestShareSettingsNil проверяет обработку отсутствующих настроек.
func TestShareSettingsNil(t *testing.T) {
	raw, err := marshalShareSettings(nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil payload, got %s", raw)
	}

	settings, err := unmarshalShareSettings(nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if settings != nil {
		t.Fatalf("expected nil settings, got %+v", settings)
	}
}

// TestPermissionsDefault проверяет десериализацию пустых прав.
func TestPermissionsDefault(t *testing.T) {
	permissions, err := unmarshalPermissions(nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if permissions != (models.Permissions{}) {
		t.Fatalf("expected zero permissions, got %+v", permissions)
	}
}
