package apps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/zou/appbridge/internal/shared/paths"
	"github.com/zou/appbridge/internal/shared/types"
)

// maxDesktopIDLen keeps lookups below common NAME_MAX limits
const maxDesktopIDLen = 240

// DefaultPattern matches every desktop entry below an applications directory
const DefaultPattern = "**/*.desktop"

// DesktopOptions configures a DesktopRegistry
type DesktopOptions struct {
	// Dirs are applications directories in precedence order
	Dirs []string
	// Pattern filters entries by path relative to their directory
	Pattern string
	// Terminal prefixes the argv of Terminal=true entries
	Terminal []string
	Starter  Starter
	Logger   *zap.Logger
}

// DesktopRegistry treats the XDG desktop entries as the host's application
// registry. The app identifier is the desktop file ID.
type DesktopRegistry struct {
	dirs     []string
	pattern  string
	terminal []string
	starter  Starter
	logger   *zap.Logger

	// overridable in tests
	lookPath func(string) (string, error)
}

// NewDesktopRegistry creates a registry over the given directories
func NewDesktopRegistry(opts DesktopOptions) (*DesktopRegistry, error) {
	if len(opts.Dirs) == 0 {
		opts.Dirs = DefaultAppDirs()
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(opts.Pattern) {
		return nil, fmt.Errorf("invalid registry pattern %q", opts.Pattern)
	}
	if opts.Terminal == nil {
		opts.Terminal = []string{"x-terminal-emulator", "-e"}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Starter == nil {
		opts.Starter = NewExecStarter(opts.Logger)
	}

	return &DesktopRegistry{
		dirs:     opts.Dirs,
		pattern:  opts.Pattern,
		terminal: opts.Terminal,
		starter:  opts.Starter,
		logger:   opts.Logger,
		lookPath: exec.LookPath,
	}, nil
}

// DefaultAppDirs returns the XDG applications directories in precedence order
func DefaultAppDirs() []string {
	return paths.ApplicationDirs()
}

// resolved is a desktop entry found for an ID
type resolved struct {
	id    string
	path  string
	entry *DesktopEntry
}

// IsInstalled reports whether a visible desktop entry exists for appID
func (r *DesktopRegistry) IsInstalled(ctx context.Context, appID string) (bool, error) {
	res, err := r.resolve(ctx, appID)
	if err != nil || res == nil {
		return false, err
	}
	return r.installed(res), nil
}

// Launch starts the entry's Exec command when it has one
func (r *DesktopRegistry) Launch(ctx context.Context, appID string) (bool, error) {
	res, err := r.resolve(ctx, appID)
	if err != nil || res == nil {
		return false, err
	}
	if !r.installed(res) {
		return false, nil
	}

	spec, ok, err := r.launchSpec(res)
	if err != nil || !ok {
		return false, err
	}
	// an expired call must not launch
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := r.starter.Start(ctx, spec); err != nil {
		return false, err
	}
	return true, nil
}

// List scans every directory and returns the effective entries, with
// higher-precedence directories masking lower ones.
func (r *DesktopRegistry) List(ctx context.Context) ([]types.AppEntry, error) {
	seen := make(map[string]bool)
	var entries []types.AppEntry

	for _, dir := range r.dirs {
		found, err := r.scanDir(ctx, dir)
		if err != nil {
			return nil, err
		}

		for _, res := range found {
			if seen[res.id] {
				continue
			}
			seen[res.id] = true
			if !r.installed(res) {
				continue
			}
			entries = append(entries, r.toAppEntry(res))
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (r *DesktopRegistry) scanDir(ctx context.Context, dir string) ([]*resolved, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var (
		mu    sync.Mutex
		found []*resolved
	)
	conf := fastwalk.Config{Follow: true}

	// the walk callback runs on several goroutines
	err := fastwalk.Walk(&conf, dir, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			r.logger.Debug("Skipping unreadable path", zap.String("path", p), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := doublestar.Match(r.pattern, rel); !ok {
			return nil
		}

		entry, err := readDesktopEntry(p)
		if err != nil {
			r.logger.Debug("Skipping invalid desktop entry", zap.String("path", p), zap.Error(err))
			return nil
		}

		mu.Lock()
		found = append(found, &resolved{id: DesktopFileID(rel), path: p, entry: entry})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].path < found[j].path })
	return found, nil
}

// resolve finds the effective entry for appID. (nil, nil) means not found.
func (r *DesktopRegistry) resolve(ctx context.Context, appID string) (*resolved, error) {
	if !validDesktopID(appID) {
		return nil, nil
	}

	for _, dir := range r.dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rel, err := r.findInDir(ctx, dir, "", appID)
		if err != nil {
			return nil, err
		}
		if rel == "" {
			continue
		}

		path := filepath.Join(dir, filepath.FromSlash(rel))
		entry, err := readDesktopEntry(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return &resolved{id: appID, path: path, entry: entry}, nil
	}
	return nil, nil
}

// findInDir maps a desktop file ID back to a relative path. Each '-' in the
// ID may stand for a directory separator, so candidate subdirectories are
// tried only when they exist.
func (r *DesktopRegistry) findInDir(ctx context.Context, dir, prefix, rest string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel := prefix + rest + ".desktop"
	info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	switch {
	case err == nil && !info.IsDir():
		if ok, _ := doublestar.Match(r.pattern, rel); ok {
			return rel, nil
		}
	case err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission):
		return "", fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	for i := 0; i < len(rest); i++ {
		if rest[i] != '-' || i == 0 {
			continue
		}
		if part := rest[:i]; part == "." || part == ".." {
			continue
		}
		sub := prefix + rest[:i]
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(sub)))
		if err != nil || !info.IsDir() {
			continue
		}
		found, err := r.findInDir(ctx, dir, sub+"/", rest[i+1:])
		if err != nil || found != "" {
			return found, err
		}
	}
	return "", nil
}

func (r *DesktopRegistry) installed(res *resolved) bool {
	e := res.entry
	if e.Hidden || !e.IsApplication() {
		return false
	}
	if e.TryExec != "" {
		if _, err := r.lookPath(e.TryExec); err != nil {
			return false
		}
	}
	return true
}

func (r *DesktopRegistry) launchSpec(res *resolved) (LaunchSpec, bool, error) {
	e := res.entry
	if e.NoDisplay || e.Exec == "" {
		return LaunchSpec{}, false, nil
	}

	args, err := SplitExec(e.Exec)
	if err != nil {
		return LaunchSpec{}, false, fmt.Errorf("%s: %w", res.path, err)
	}
	args = ExpandFieldCodes(args, e, res.path)
	if len(args) == 0 {
		return LaunchSpec{}, false, nil
	}
	if e.Terminal && len(r.terminal) > 0 {
		args = append(append([]string{}, r.terminal...), args...)
	}

	return LaunchSpec{AppID: res.id, Argv: args, Dir: e.Path}, true, nil
}

func (r *DesktopRegistry) toAppEntry(res *resolved) types.AppEntry {
	entry := types.AppEntry{
		ID:        res.id,
		Name:      res.entry.Name,
		Path:      res.path,
		NoDisplay: res.entry.NoDisplay,
		Hidden:    res.entry.Hidden,
		Source:    types.SourceDesktop,
	}
	if spec, ok, err := r.launchSpec(res); err == nil && ok {
		entry.Exec = spec.Argv
	}
	return entry
}

// DesktopFileID derives the desktop file ID from a path relative to an
// applications directory: "kde4/foo.desktop" -> "kde4-foo".
func DesktopFileID(rel string) string {
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".desktop")
	return strings.ReplaceAll(rel, "/", "-")
}

func validDesktopID(id string) bool {
	if id == "" || len(id) > maxDesktopIDLen || strings.ContainsAny(id, "/\\\x00") {
		return false
	}
	return id != "." && id != ".."
}

func readDesktopEntry(path string) (*DesktopEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDesktopEntry(f)
}
