// Package scenetest provides an in-memory scene.Context for tests.
package scenetest

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/raphi011/cachemgr/internal/scene"
)

// Fake is an in-memory scene. References and Env can be set directly;
// SetReference records calls through the embedded mock and updates the
// matching references unless a failure was registered with FailOn.
type Fake struct {
	mock.Mock

	mu   sync.Mutex
	refs []scene.Reference
	env  map[string]string
	fail map[string]error

	// ReadErr, when set, is returned by ReferencedPaths.
	ReadErr error
}

// New returns a Fake with the given environment and references.
func New(env map[string]string, refs ...scene.Reference) *Fake {
	if env == nil {
		env = map[string]string{}
	}
	return &Fake{
		refs: append([]scene.Reference(nil), refs...),
		env:  env,
		fail: map[string]error{},
	}
}

// FailOn makes SetReference for node return err.
func (f *Fake) FailOn(node string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[node] = err
}

// SetEnv sets a scene variable.
func (f *Fake) SetEnv(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.env[name] = value
}

// UnsetEnv removes a scene variable.
func (f *Fake) UnsetEnv(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.env, name)
}

// References returns a copy of the current references.
func (f *Fake) References() []scene.Reference {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scene.Reference(nil), f.refs...)
}

// ReferencedPaths implements scene.Context.
func (f *Fake) ReferencedPaths(ctx context.Context) ([]scene.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	return f.References(), nil
}

// SetReference implements scene.Context.
func (f *Fake) SetReference(_ context.Context, node, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.MethodCalled("SetReference", node, path)

	if err, ok := f.fail[node]; ok {
		return &scene.RejectedError{Node: node, Path: path, Err: err}
	}
	found := false
	for i := range f.refs {
		if f.refs[i].Node == node {
			f.refs[i].Path = path
			found = true
		}
	}
	if !found {
		return &scene.RejectedError{Node: node, Path: path, Err: scene.ErrUnknownNode}
	}
	return nil
}

// EnvironmentValue implements scene.Context.
func (f *Fake) EnvironmentValue(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.env[name]
	return v, ok
}

// ExpectSetReference registers an expected SetReference call. Calls that
// were not expected fail the test through the mock.
func (f *Fake) ExpectSetReference(node, path string) *mock.Call {
	return f.On("SetReference", node, path).Return()
}

// AllowAnySetReference accepts SetReference calls with any arguments.
func (f *Fake) AllowAnySetReference() *mock.Call {
	return f.On("SetReference", mock.Anything, mock.Anything).Return()
}

var _ scene.Context = (*Fake)(nil)
