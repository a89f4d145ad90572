package spec

import "github.com/ChicagoDave/siteplanner/pkg/attributes"

// Project is the top-level description of a generation job: where the query
// library and site inputs live, what each site should achieve and where runs
// are written.
type Project struct {
	SpecVersion string     `yaml:"spec_version" json:"spec_version"`
	Name        string     `yaml:"name" json:"name"`
	Query       LibraryDef `yaml:"query" json:"query"`
	Site        SiteDef    `yaml:"site" json:"site"`
	Targets     Targets    `yaml:"targets" json:"targets"`
	Output      OutputDef  `yaml:"output" json:"output"`

	// Dir is the directory the project was loaded from. Relative input paths
	// resolve against it.
	Dir string `yaml:"-" json:"-"`
}

// LibraryDef names the files describing a perception library: anchor
// points, their catchment regions and the cluster label of each point.
type LibraryDef struct {
	Points    string `yaml:"points" json:"points"`
	Regions   string `yaml:"regions" json:"regions"`
	Clusters  string `yaml:"clusters" json:"clusters"`
	Buildings string `yaml:"buildings,omitempty" json:"buildings,omitempty"`
}

// SiteDef is the site-side library plus the polygons to fill.
type SiteDef struct {
	LibraryDef `yaml:",inline"`
	Polygons   string `yaml:"polygons" json:"polygons"`
}

// Targets holds the development quota per site polygon. Sites without an
// entry use Default.
type Targets struct {
	Default attributes.Attributes            `yaml:"default" json:"default"`
	Sites   map[string]attributes.Attributes `yaml:"sites,omitempty" json:"sites,omitempty"`
}

// For returns the target for site polygon id.
func (t Targets) For(id string) attributes.Attributes {
	if a, ok := t.Sites[id]; ok {
		return a
	}
	return t.Default
}

// OutputDef controls where and how runs are written.
type OutputDef struct {
	Dir string `yaml:"dir" json:"dir"`
	// SimplifyTolerance, when positive, simplifies written polygons with
	// Douglas-Peucker at this distance.
	SimplifyTolerance float64 `yaml:"simplify_tolerance,omitempty" json:"simplify_tolerance,omitempty"`
}
