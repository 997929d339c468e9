package scene

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/raphi011/cachemgr/internal/storage"
)

// DefaultEnvFile is the dotenv file looked up next to a manifest.
const DefaultEnvFile = ".env"

// ManifestFile is the on-disk form of a scene manifest:
//
//	scene: /projects/show/hip/fx_sh010.hip
//	env:
//	  JOB: /projects/show
//	references:
//	  - node: /obj/flip/filecache1
//	    parm: file
//	    path: $JOB/geo/flip/v001/flip.$F4.bgeo.sc
type ManifestFile struct {
	Scene      string            `yaml:"scene,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	References []Reference       `yaml:"references"`
}

// Manifest is a [Context] backed by a manifest file. The file is re-read on
// every call to ReferencedPaths so the view follows the host exporter.
type Manifest struct {
	path    string
	envFile string

	mu       sync.Mutex
	env      map[string]string
	envStamp [2]time.Time
}

// ManifestOption configures a Manifest.
type ManifestOption func(*Manifest)

// WithEnvFile sets the dotenv file seeding the scene environment. Values in
// the manifest's env section take precedence.
func WithEnvFile(path string) ManifestOption {
	return func(m *Manifest) { m.envFile = path }
}

// NewManifest returns a Manifest for path. Without WithEnvFile, a .env next
// to the manifest is used when present.
func NewManifest(path string, opts ...ManifestOption) *Manifest {
	m := &Manifest{
		path:    path,
		envFile: filepath.Join(filepath.Dir(path), DefaultEnvFile),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the manifest file path.
func (m *Manifest) Path() string { return m.path }

func (m *Manifest) lockPath() string {
	return m.path + ".lock"
}

// Read parses the manifest file.
func (m *Manifest) Read() (*ManifestFile, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("read scene manifest: %w", err)
	}
	var f ManifestFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene manifest %s: %w", m.path, err)
	}
	return &f, nil
}

// Write replaces the manifest atomically.
func (m *Manifest) Write(ctx context.Context, f *ManifestFile) error {
	return storage.WithLock(ctx, m.lockPath(), func() error {
		return m.write(f)
	})
}

func (m *Manifest) write(f *ManifestFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(m.path, data, 0o644)
}

// ReferencedPaths implements Context.
func (m *Manifest) ReferencedPaths(ctx context.Context) ([]Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := m.Read()
	if err != nil {
		return nil, err
	}
	return f.References, nil
}

// SetReference implements Context. Every reference held by node is
// re-pointed to path.
func (m *Manifest) SetReference(ctx context.Context, node, path string) error {
	return storage.WithLock(ctx, m.lockPath(), func() error {
		f, err := m.Read()
		if err != nil {
			return err
		}

		found := false
		for i := range f.References {
			if f.References[i].Node == node {
				f.References[i].Path = path
				found = true
			}
		}
		if !found {
			return &RejectedError{Node: node, Path: path, Err: ErrUnknownNode}
		}
		return m.write(f)
	})
}

// EnvironmentValue implements Context.
func (m *Manifest) EnvironmentValue(name string) (string, bool) {
	env, err := m.Environment()
	if err != nil {
		return "", false
	}
	v, ok := env[name]
	return v, ok
}

// Environment returns the merged scene environment: the dotenv file
// overlaid with the manifest's env section. The result is cached until
// either file changes.
func (m *Manifest) Environment() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp := [2]time.Time{modTime(m.path), modTime(m.envFile)}
	if m.env != nil && stamp == m.envStamp {
		return m.env, nil
	}

	env := map[string]string{}
	if m.envFile != "" {
		dot, err := godotenv.Read(m.envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file %s: %w", m.envFile, err)
		}
		for k, v := range dot {
			env[k] = v
		}
	}

	f, err := m.Read()
	if err != nil {
		return nil, err
	}
	for k, v := range f.Env {
		env[k] = v
	}

	m.env = env
	m.envStamp = stamp
	return env, nil
}

func modTime(path string) time.Time {
	if path == "" {
		return time.Time{}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
