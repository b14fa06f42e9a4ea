// Package provider describes the test-management platforms assets move
// between.
//
// Every provider carries an explicit Capability tag, so a migration can check
// up front that its source is readable and its target writable instead of
// probing adapter methods at run time.
package provider

import (
	"context"
	"slices"
	"sync"

	"github.com/jonwraymond/assetmigrate/depgraph"
	"github.com/jonwraymond/assetmigrate/failure"
)

// Capability states which migration directions a provider supports.
type Capability int

const (
	// Both means assets can be read from and written to the provider.
	Both Capability = iota
	// SourceOnly providers can only be migrated from.
	SourceOnly
	// TargetOnly providers can only be migrated to.
	TargetOnly
)

// String returns the capability name.
func (c Capability) String() string {
	switch c {
	case SourceOnly:
		return "source-only"
	case TargetOnly:
		return "target-only"
	default:
		return "both"
	}
}

// ParseCapability parses the String form. Unknown values are a validation error.
func ParseCapability(s string) (Capability, error) {
	switch s {
	case "both", "":
		return Both, nil
	case "source-only":
		return SourceOnly, nil
	case "target-only":
		return TargetOnly, nil
	}
	return Both, failure.Newf(failure.KindValidation, "provider.capability", "unknown capability %q", s)
}

// Descriptor identifies a provider.
type Descriptor struct {
	ID         string
	Name       string
	Capability Capability
}

// CanRead reports whether assets can be exported from the provider.
func (d Descriptor) CanRead() bool {
	return d.Capability == Both || d.Capability == SourceOnly
}

// CanWrite reports whether assets can be imported into the provider.
func (d Descriptor) CanWrite() bool {
	return d.Capability == Both || d.Capability == TargetOnly
}

// Built-in provider ids.
const (
	Zephyr      = "zephyr"
	QTest       = "qtest"
	AzureDevOps = "azure-devops"
	TestRail    = "testrail"
	HPALM       = "hp-alm"
)

// Builtins returns the descriptors registered in every new Catalog.
func Builtins() []Descriptor {
	return []Descriptor{
		{ID: Zephyr, Name: "Zephyr Scale", Capability: Both},
		{ID: QTest, Name: "qTest Manager", Capability: Both},
		{ID: AzureDevOps, Name: "Azure DevOps Test Plans", Capability: Both},
		{ID: TestRail, Name: "TestRail", Capability: Both},
		{ID: HPALM, Name: "Micro Focus ALM", Capability: SourceOnly},
	}
}

// Catalog is a concurrency safe set of provider descriptors.
type Catalog struct {
	mu        sync.RWMutex
	providers map[string]Descriptor
}

// NewCatalog returns a catalog holding the built-ins plus extra, which may
// override them.
func NewCatalog(extra ...Descriptor) *Catalog {
	c := &Catalog{providers: make(map[string]Descriptor)}
	for _, d := range Builtins() {
		c.providers[d.ID] = d
	}
	for _, d := range extra {
		c.providers[d.ID] = d
	}
	return c
}

// Register adds or replaces a descriptor.
func (c *Catalog) Register(d Descriptor) error {
	if d.ID == "" {
		return failure.New(failure.KindValidation, "provider.register", "provider id is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providers[d.ID] = d
	return nil
}

// Lookup returns the descriptor for id.
func (c *Catalog) Lookup(id string) (Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.providers[id]
	if !ok {
		return Descriptor{}, failure.Newf(failure.KindNotFound, "provider.lookup", "unknown provider %q", id)
	}
	return d, nil
}

// IDs returns the registered provider ids in sorted order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.providers))
	for id := range c.providers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Route validates a migration from source to target and returns both
// descriptors. An empty id skips that side.
func (c *Catalog) Route(source, target string) (src, dst Descriptor, err error) {
	if source != "" {
		if src, err = c.Lookup(source); err != nil {
			return src, dst, err
		}
		if !src.CanRead() {
			return src, dst, failure.Newf(failure.KindValidation, "provider.route", "provider %q cannot be used as a source", source)
		}
	}
	if target != "" {
		if dst, err = c.Lookup(target); err != nil {
			return src, dst, err
		}
		if !dst.CanWrite() {
			return src, dst, failure.Newf(failure.KindValidation, "provider.route", "provider %q cannot be used as a target", target)
		}
	}
	return src, dst, nil
}

// OperationSource is implemented by provider adapters that describe the API
// calls needed to reach a migration goal.
type OperationSource interface {
	Operations(ctx context.Context, provider Descriptor) ([]depgraph.OperationDefinition, error)
}

// StaticOperations serves a fixed definition set, typically loaded from an
// operations file.
type StaticOperations []depgraph.Spec

// Operations returns the definitions regardless of provider.
func (s StaticOperations) Operations(ctx context.Context, _ Descriptor) ([]depgraph.OperationDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return depgraph.DefineAll(s), nil
}
