// Package loader resolves module source and resources by name.
//
// The shell consults a Loader for every `require` it meets, at compile time
// for literal references and at run time for dynamic ones. Timed wraps any
// Loader so the owning execution can attribute resolution cost to the load
// timing kind.
package loader

import (
	"errors"
	"fmt"
)

// Source is a resolved module.
type Source struct {
	// Name is the module name as requested.
	Name string

	// Text is the raw source text.
	Text string

	// Location says where the text came from (file path or "mem:<name>").
	Location string
}

// Loader resolves modules and resources.
type Loader interface {
	// LoadUnit returns the source of the named module.
	LoadUnit(name string) (Source, error)

	// FindResource returns the location of the first resource matching name.
	FindResource(name string) (string, error)

	// FindResources returns the locations of all resources matching name.
	// An empty result is not an error.
	FindResources(name string) ([]string, error)
}

// ErrNotFound matches every NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a module or resource that no root provides.
type NotFoundError struct {
	// Kind is "module" or "resource".
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is makes errors.Is(err, ErrNotFound) true.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func moduleNotFound(name string) error {
	return &NotFoundError{Kind: "module", Name: name}
}

func resourceNotFound(name string) error {
	return &NotFoundError{Kind: "resource", Name: name}
}

// Chain consults loaders in order. The first hit wins; not-found errors fall
// through to the next loader, any other error stops the search.
type Chain []Loader

// LoadUnit implements Loader.
func (c Chain) LoadUnit(name string) (Source, error) {
	for _, l := range c {
		src, err := l.LoadUnit(name)
		if err == nil {
			return src, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Source{}, err
		}
	}
	return Source{}, moduleNotFound(name)
}

// FindResource implements Loader.
func (c Chain) FindResource(name string) (string, error) {
	for _, l := range c {
		loc, err := l.FindResource(name)
		if err == nil {
			return loc, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", resourceNotFound(name)
}

// FindResources implements Loader.
func (c Chain) FindResources(name string) ([]string, error) {
	var all []string
	for _, l := range c {
		locs, err := l.FindResources(name)
		if err != nil {
			return nil, err
		}
		all = append(all, locs...)
	}
	return all, nil
}
