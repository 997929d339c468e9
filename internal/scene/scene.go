// Package scene defines how cachemgr talks to the host application's open
// scene: which cache paths its nodes reference, how to re-point a node, and
// the scene's environment variables.
//
// The host itself is out of reach from a standalone process. [Manifest]
// implements [Context] on top of a YAML file that a host-side exporter keeps
// in sync with the scene; tests use the fake in package scenetest.
package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphi011/cachemgr/internal/expand"
)

// Reference is one file parameter of one node pointing at a cache path.
// Path is stored as written in the scene and may carry a $VAR token.
type Reference struct {
	Node string `yaml:"node" json:"node"`
	Parm string `yaml:"parm,omitempty" json:"parm,omitempty"`
	Path string `yaml:"path" json:"path"`
}

func (r Reference) String() string {
	if r.Parm == "" {
		return fmt.Sprintf("%s: %s", r.Node, r.Path)
	}
	return fmt.Sprintf("%s/%s: %s", r.Node, r.Parm, r.Path)
}

// Context is the host scene capability.
type Context interface {
	expand.Environment

	// ReferencedPaths returns every cache reference in the scene.
	ReferencedPaths(ctx context.Context) ([]Reference, error)

	// SetReference re-points the node's cache parameter to path.
	SetReference(ctx context.Context, node, path string) error
}

// ErrUnknownNode is returned by SetReference for a node the scene does not
// have.
var ErrUnknownNode = errors.New("unknown node")

// RejectedError wraps a host refusal to change a reference.
type RejectedError struct {
	Node string
	Path string
	Err  error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("scene rejected %s -> %s: %v", e.Node, e.Path, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }
