package loader

import (
	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/scene"
)

// Project is a loaded config root: its scenes and its template library.
type Project struct {
	Layout   Layout
	Document scene.Document
	Library  *Library
}

// Load reads the scenes of a config root. Templates are loaded lazily by
// the library when the compiler asks for them.
func Load(root string) (*Project, error) {
	layout := Layout{Root: root}
	doc, err := layout.LoadScenes()
	if err != nil {
		return nil, err
	}
	return &Project{
		Layout:   layout,
		Document: doc,
		Library:  NewLibrary(layout),
	}, nil
}
