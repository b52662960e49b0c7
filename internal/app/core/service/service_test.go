package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/R3E-Network/sira_platform/internal/app/storage"
	apperrors "github.com/R3E-Network/sira_platform/internal/errors"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, Translate(nil, "Alert"))

	err := Translate(fmt.Errorf("alerts 4: %w", storage.ErrNotFound), "Alert")
	se := apperrors.GetServiceError(err)
	if assert.NotNil(t, se) {
		assert.Equal(t, apperrors.CodeNotFound, se.Code)
		assert.Equal(t, "Alert not found", se.Message)
	}

	assert.True(t, apperrors.Is(Translate(storage.ErrConflict, "Username"), apperrors.CodeConflict))

	bad := apperrors.BadRequest("nope")
	assert.Same(t, bad, Translate(bad, "Alert"))

	plain := errors.New("boom")
	assert.Equal(t, plain, Translate(plain, "Alert"))
}

func TestDescriptorWithCapabilities(t *testing.T) {
	d := Descriptor{Name: "alerts", Domain: "security", Layer: LayerCore, Capabilities: []string{"rules"}}
	d2 := d.WithCapabilities("sla")
	assert.Equal(t, []string{"rules"}, d.Capabilities)
	assert.Equal(t, []string{"rules", "sla"}, d2.Capabilities)
	assert.Equal(t, d, d.WithCapabilities())
}

func TestPatchHelpers(t *testing.T) {
	name := "old"
	Set(&name, nil)
	assert.Equal(t, "old", name)
	updated := "new"
	Set(&name, &updated)
	assert.Equal(t, "new", name)

	var speed *float64
	v := 12.5
	SetPtr(&speed, &v)
	v = 3
	if assert.NotNil(t, speed) {
		assert.Equal(t, 12.5, *speed)
	}

	var at *time.Time
	local := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("EAT", 3*3600))
	SetTime(&at, &local)
	if assert.NotNil(t, at) {
		assert.Equal(t, time.UTC, at.Location())
		assert.True(t, at.Equal(local))
	}
}
