package apps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zou/appbridge/internal/shared/types"
)

const editorEntry = `[Desktop Entry]
Type=Application
Name=Editor
Exec=editor --new %U
`

func newTestDesktop(t *testing.T, starter Starter, dirs ...string) *DesktopRegistry {
	t.Helper()
	r, err := NewDesktopRegistry(DesktopOptions{
		Dirs:     dirs,
		Terminal: []string{"term", "-e"},
		Starter:  starter,
	})
	require.NoError(t, err)
	r.lookPath = func(file string) (string, error) {
		if file == "present" {
			return "/usr/bin/present", nil
		}
		return "", errors.New("not found")
	}
	return r
}

func TestDesktopIsInstalled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "editor.desktop", editorEntry)
	writeFile(t, dir, "hidden.desktop", "[Desktop Entry]\nName=H\nExec=h\nHidden=true\n")
	writeFile(t, dir, "link.desktop", "[Desktop Entry]\nType=Link\nName=L\n")
	writeFile(t, dir, "tryok.desktop", "[Desktop Entry]\nName=T\nExec=t\nTryExec=present\n")
	writeFile(t, dir, "trymissing.desktop", "[Desktop Entry]\nName=T\nExec=t\nTryExec=absent\n")
	writeFile(t, dir, "kde4/konsole.desktop", "[Desktop Entry]\nName=Konsole\nExec=konsole\n")
	writeFile(t, dir, "nodisplay.desktop", "[Desktop Entry]\nName=N\nExec=n\nNoDisplay=true\n")

	r := newTestDesktop(t, &mockStarter{}, dir)
	ctx := context.Background()

	tests := []struct {
		id   string
		want bool
	}{
		{"editor", true},
		{"hidden", false},
		{"link", false},
		{"tryok", true},
		{"trymissing", false},
		{"kde4-konsole", true},
		{"nodisplay", true},
		{"missing", false},
		{"", false},
		{"..", false},
		{"../editor", false},
		{"kde4/konsole", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := r.IsInstalled(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDesktopPrecedence(t *testing.T) {
	user := t.TempDir()
	system := t.TempDir()
	writeFile(t, user, "editor.desktop", "[Desktop Entry]\nName=Editor\nHidden=true\n")
	writeFile(t, system, "editor.desktop", editorEntry)
	writeFile(t, system, "viewer.desktop", "[Desktop Entry]\nName=Viewer\nExec=viewer\n")

	r := newTestDesktop(t, &mockStarter{}, user, system)
	ctx := context.Background()

	installed, err := r.IsInstalled(ctx, "editor")
	require.NoError(t, err)
	assert.False(t, installed, "user entry masks the system one")

	installed, err = r.IsInstalled(ctx, "viewer")
	require.NoError(t, err)
	assert.True(t, installed)

	entries, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "viewer", entries[0].ID)
}

func TestDesktopIsInstalledHasNoSideEffect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "editor.desktop", editorEntry)

	starter := &mockStarter{}
	r := newTestDesktop(t, starter, dir)

	for i := 0; i < 3; i++ {
		installed, err := r.IsInstalled(context.Background(), "editor")
		require.NoError(t, err)
		assert.True(t, installed)
	}
	starter.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestDesktopLaunch(t *testing.T) {
	dir := t.TempDir()
	editorPath := writeFile(t, dir, "editor.desktop", editorEntry)
	writeFile(t, dir, "shell.desktop", "[Desktop Entry]\nName=Shell\nExec=htop\nTerminal=true\nPath=/srv\n")
	writeFile(t, dir, "noexec.desktop", "[Desktop Entry]\nName=NoExec\n")
	writeFile(t, dir, "nodisplay.desktop", "[Desktop Entry]\nName=N\nExec=n\nNoDisplay=true\n")

	starter := &mockStarter{}
	starter.On("Start", mock.Anything, LaunchSpec{AppID: "editor", Argv: []string{"editor", "--new"}}).Return(nil).Once()
	starter.On("Start", mock.Anything, LaunchSpec{AppID: "shell", Argv: []string{"term", "-e", "htop"}, Dir: "/srv"}).Return(nil).Once()

	r := newTestDesktop(t, starter, dir)
	ctx := context.Background()

	launched, err := r.Launch(ctx, "editor")
	require.NoError(t, err)
	assert.True(t, launched)

	launched, err = r.Launch(ctx, "shell")
	require.NoError(t, err)
	assert.True(t, launched)

	for _, id := range []string{"noexec", "nodisplay", "missing"} {
		launched, err = r.Launch(ctx, id)
		require.NoError(t, err, id)
		assert.False(t, launched, id)
	}

	starter.AssertExpectations(t)
	assert.FileExists(t, editorPath)
}

func TestDesktopLaunchStarterError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "editor.desktop", editorEntry)

	starter := &mockStarter{}
	starter.On("Start", mock.Anything, mock.Anything).Return(errors.New("exec format error"))

	r := newTestDesktop(t, starter, dir)

	launched, err := r.Launch(context.Background(), "editor")
	require.Error(t, err)
	assert.False(t, launched)
}

func TestDesktopMalformedEntryIsPlatformError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.desktop", "[Desktop Entry]\nName\n")

	r := newTestDesktop(t, &mockStarter{}, dir)

	_, err := r.IsInstalled(context.Background(), "broken")
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestDesktopCanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "editor.desktop", editorEntry)
	r := newTestDesktop(t, &mockStarter{}, dir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.IsInstalled(ctx, "editor")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDesktopLaunchAfterDeadlineHasNoSideEffect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tool.desktop", "[Desktop Entry]\nName=Tool\nExec=tool\nTryExec=present\n")

	starter := &mockStarter{}
	r := newTestDesktop(t, starter, dir)

	// the call expires while the entry is being checked
	ctx, cancel := context.WithCancel(context.Background())
	r.lookPath = func(string) (string, error) {
		cancel()
		return "/usr/bin/present", nil
	}

	launched, err := r.Launch(ctx, "tool")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, launched)
	starter.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestDesktopFindInDirStopsOnCanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "kde4/konsole.desktop", "[Desktop Entry]\nName=Konsole\nExec=konsole\n")
	r := newTestDesktop(t, &mockStarter{}, dir)

	rel, err := r.findInDir(context.Background(), dir, "", "kde4-konsole")
	require.NoError(t, err)
	assert.Equal(t, "kde4/konsole.desktop", rel)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.findInDir(ctx, dir, "", "kde4-konsole")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDesktopEmptyIDIsNotInstalled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "editor.desktop", editorEntry)

	starter := &mockStarter{}
	r := newTestDesktop(t, starter, dir)

	installed, err := r.IsInstalled(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, installed)

	launched, err := r.Launch(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, launched)
	starter.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestDesktopList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "editor.desktop", editorEntry)
	writeFile(t, dir, "kde4/konsole.desktop", "[Desktop Entry]\nName=Konsole\nExec=konsole\n")
	writeFile(t, dir, "broken.desktop", "not an entry")
	writeFile(t, dir, "readme.txt", "ignored")

	r := newTestDesktop(t, &mockStarter{}, dir, filepath.Join(dir, "does-not-exist"))

	entries, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "editor", entries[0].ID)
	assert.Equal(t, []string{"editor", "--new"}, entries[0].Exec)
	assert.Equal(t, types.SourceDesktop, entries[0].Source)
	assert.Equal(t, "kde4-konsole", entries[1].ID)

	stats := Stats(entries)
	assert.Equal(t, 2, stats.TotalApps)
	assert.Equal(t, 2, stats.LaunchableApps)
	assert.Equal(t, 2, stats.Sources["desktop"])
}

func TestNewDesktopRegistryRejectsBadPattern(t *testing.T) {
	_, err := NewDesktopRegistry(DesktopOptions{Dirs: []string{t.TempDir()}, Pattern: "[a-"})
	assert.Error(t, err)
}

func TestDesktopFileID(t *testing.T) {
	assert.Equal(t, "firefox", DesktopFileID("firefox.desktop"))
	assert.Equal(t, "kde4-foo", DesktopFileID("kde4/foo.desktop"))
}

func TestDefaultAppDirs(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/home/u/.data")
	t.Setenv("XDG_DATA_DIRS", "/a:/b")

	assert.Equal(t, []string{
		"/home/u/.data/applications",
		"/a/applications",
		"/b/applications",
	}, DefaultAppDirs())
}

func TestExecStarterEmptyCommand(t *testing.T) {
	s := NewExecStarter(nil)
	err := s.Start(context.Background(), LaunchSpec{AppID: "x"})
	assert.Error(t, err)
}

func TestExecStarterRunsProcess(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	marker := filepath.Join(t.TempDir(), "launched")

	s := NewExecStarter(nil)
	err := s.Start(context.Background(), LaunchSpec{
		AppID: "touch",
		Argv:  []string{"/bin/sh", "-c", "echo ok > " + marker},
	})
	require.NoError(t, err)
	s.Wait()

	assert.FileExists(t, marker)
}
