package apps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStarter struct {
	mock.Mock
}

func (m *mockStarter) Start(ctx context.Context, spec LaunchSpec) error {
	args := m.Called(ctx, spec)
	return args.Error(0)
}

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) IsInstalled(ctx context.Context, appID string) (bool, error) {
	args := m.Called(ctx, appID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) Launch(ctx context.Context, appID string) (bool, error) {
	args := m.Called(ctx, appID)
	return args.Bool(0), args.Error(1)
}

// writeFile creates dir/rel with content, making parent directories
func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
