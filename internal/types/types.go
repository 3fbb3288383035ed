// Package types contains the value types shared by the header, uri and sip packages.
package types

//go:generate go tool errtrace -w .

import (
	"io"

	"github.com/google/go-cmp/cmp"
)

// Renderer is implemented by model types that can be encoded to the wire form.
type Renderer interface {
	// Render renders the type to a string with the given options.
	Render(opts *RenderOptions) string
	// RenderTo renders the type to a writer with the given options.
	RenderTo(w io.Writer, opts *RenderOptions) (int, error)
}

// RenderOptions is a struct that is used to pass options to rendering methods.
type RenderOptions struct {
	// Compact is a boolean flag that is used to render a type in compact form.
	Compact bool `json:"compact,omitempty"`
}

type ValidFlag interface {
	IsValid() bool
}

// IsValid returns true if the value has method `IsValid() bool` and it returns true.
func IsValid(v any) bool {
	vv, ok := v.(ValidFlag)
	return ok && vv.IsValid()
}

type Equalable interface {
	Equal(val any) bool
}

// IsEqual returns true if the values are equal.
// Types with an Equal method are compared with it.
func IsEqual(v1, v2 any) bool {
	return cmp.Equal(v1, v2)
}

type Cloneable[T any] interface {
	Clone() T
}

// Matcher is implemented by model types supporting partial matching against a template.
// Zero fields of the template act as wildcards.
type Matcher interface {
	Match(tmpl any) bool
}

// Merger is implemented by model types that can fill their zero fields from another value.
// Non-zero fields, including nested structures, are never overwritten.
type Merger interface {
	MergeFrom(other any)
}

// ContextKey is a type of context keys.
type ContextKey string
