package internal

import (
	"testing"

	"github.com/kcmvp/archunit"
)

func TestArchitecture(t *testing.T) {
	domain := archunit.Packages("domain", []string{".../internal/domain/..."})
	adapters := archunit.Packages("adapters", []string{".../internal/adapters/..."})
	config := archunit.Packages("config", []string{".../internal/config"})
	cli := archunit.Packages("cli", []string{".../internal/cli"})

	if err := domain.ShouldNotReferLayers(adapters); err != nil {
		t.Errorf("Domain depends on adapters: %v", err)
	}
	if err := domain.ShouldNotReferLayers(config); err != nil {
		t.Errorf("Domain depends on config: %v", err)
	}
	if err := domain.ShouldNotReferLayers(cli); err != nil {
		t.Errorf("Domain depends on cli: %v", err)
	}
	// huectl only knows the admin API, never the daemon internals.
	if err := cli.ShouldNotReferLayers(adapters); err != nil {
		t.Errorf("cli depends on adapters: %v", err)
	}
	if err := adapters.ShouldNotReferLayers(config); err != nil {
		t.Errorf("Adapters depend on config: %v", err)
	}
}

func TestLayersExist(t *testing.T) {
	for _, path := range []string{
		".../internal/domain/translator",
		".../internal/domain/registry",
		".../internal/domain/service",
		".../internal/ports",
	} {
		if len(archunit.Packages(path, []string{path}).Packages()) == 0 {
			t.Errorf("No package found for %s", path)
		}
	}
}
