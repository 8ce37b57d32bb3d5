package swms

import (
	pkgmodel "github.com/goliatone/go-swms/pkg/model"
)

// LoadSections parses a render request written as JSON or YAML.
func LoadSections(data []byte) (Sections, error) {
	return pkgmodel.LoadSections(data)
}

// LoadSectionsFile reads a render request from disk.
func LoadSectionsFile(path string) (Sections, error) {
	return pkgmodel.LoadSectionsFile(path)
}

// NewAssembler constructs the document assembler behind the interface so the
// concrete type stays internal.
func NewAssembler(options ...pkgmodel.AssemblerOption) pkgmodel.Assembler {
	return pkgmodel.NewAssembler(options...)
}
