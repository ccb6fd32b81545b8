package sources

// Source is one syndication feed endpoint. Sources are created at process
// start and never mutated afterwards.
type Source struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// Categories is the fixed label set a source may belong to.
var Categories = []string{
	"general",
	"world",
	"politics",
	"business",
	"technology",
	"science",
	"sports",
	"entertainment",
}

func validCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
