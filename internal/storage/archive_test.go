package storage

import (
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tupakrantina/backoffice/pkg/config"
)

func TestNewDisabled(t *testing.T) {
	_, err := New(config.StorageConfig{Enabled: false}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(config.StorageConfig{Enabled: true}, zerolog.Nop())
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	a, err := New(config.StorageConfig{
		Enabled:   true,
		Endpoint:  "s3.example.com",
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "reportes-cartera",
		UseSSL:    true,
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "reportes-cartera", a.bucket)
}

func TestObjectURL(t *testing.T) {
	u, err := url.Parse("https://s3.example.com")
	require.NoError(t, err)

	assert.Equal(t,
		"https://s3.example.com/reportes-cartera/2024/03/Reporte.pdf",
		ObjectURL(u, "reportes-cartera", "/2024/03/Reporte.pdf"))
}
