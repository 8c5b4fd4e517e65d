package compose

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/localdeck/localdeck/internal/errors"
)

const stackYAML = `
services:
  mysql:
    image: mysql:8.0
    ports:
      - "3306:3306"
    healthcheck:
      test: ["CMD", "mysqladmin", "ping", "-h", "localhost"]
      interval: 5s
      retries: 10
  php:
    build:
      context: ./backend
    depends_on:
      - mysql
    healthcheck:
      test: ["CMD", "php-fpm-healthcheck"]
      interval: 5s
  nginx:
    image: nginx:alpine
    ports:
      - "8080:80"
    depends_on:
      - php
`

func TestParseServices(t *testing.T) {
	set, err := ParseServices(context.Background(), []byte(stackYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"mysql", "nginx", "php"}, set.Names())
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Has("mysql"))
	assert.False(t, set.Has("redis"))

	mysql, ok := set.Get("mysql")
	require.True(t, ok)
	assert.True(t, mysql.HasHealthcheck)
	assert.Equal(t, "mysql:8.0", mysql.Image)
	assert.Equal(t, []string{"3306"}, mysql.PublishedPorts)

	php, ok := set.Get("php")
	require.True(t, ok)
	assert.True(t, php.HasBuildContext)
	assert.Equal(t, []string{"mysql"}, php.DependsOn)

	nginx, ok := set.Get("nginx")
	require.True(t, ok)
	assert.False(t, nginx.HasHealthcheck)

	assert.Equal(t, []string{"mysql", "php"}, set.Healthchecked())
}

func TestParseServicesInvalidYAML(t *testing.T) {
	_, err := ParseServices(context.Background(), []byte("services:\n  - not\n - aligned"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrComposeInvalid)
}

func TestParseServicesEmpty(t *testing.T) {
	_, err := ParseServices(context.Background(), []byte(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrComposeInvalid)
}

func TestParseServicesNoServices(t *testing.T) {
	_, err := ParseServices(context.Background(), []byte("volumes:\n  data:\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrComposeInvalid)
}

func TestLoadServicesMissingFile(t *testing.T) {
	_, err := LoadServices(context.Background(), filepath.Join(t.TempDir(), "docker-compose.yml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrComposeFileNotFound)
}

func TestLoadServicesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte(stackYAML), 0644))

	set, err := LoadServices(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
}
