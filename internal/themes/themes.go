// Package themes defines the curated investment themes driving the
// discovery pipeline.
package themes

// Theme is a curated investment topic: a boolean news-search query plus
// an optional keyword set used when filtering articles per ticker.
type Theme struct {
	Name     string
	Query    string
	Keywords []string
}

// InvestmentThemes is the ordered theme table. Order matters for
// deterministic runs; keep new themes at the end.
var InvestmentThemes = []Theme{
	{
		Name:  "AI & Semiconductors",
		Query: `"artificial intelligence" OR "semiconductor" OR "machine learning" OR "NVIDIA"`,
	},
	{
		Name:  "Metaverse & VR",
		Query: `"metaverse" OR "virtual reality" OR "augmented reality" OR "Roblox" OR "Unity"`,
	},
	{
		Name:  "EV & Autonomous Driving",
		Query: `"electric vehicle" OR "self-driving" OR "autonomous car" OR "Tesla" OR "Rivian"`,
	},
	{
		Name:  "Cloud Computing",
		Query: `"cloud computing" OR "data center" OR "SaaS" OR "Amazon AWS" OR "Microsoft Azure"`,
	},
	{
		Name:  "Biotech & Healthcare",
		Query: `"biotechnology" OR "healthcare" OR "pharmaceutical" OR "clinical trial"`,
	},
	{
		Name:  "Entertainment & Media",
		Query: `"entertainment" OR "streaming" OR "media" OR "Disney" OR "Netflix"`,
	},
	{
		Name:  "Clean Energy",
		Query: `"renewable energy" OR "solar power" OR "wind power" OR "clean energy"`,
	},
}

// ByName returns the theme with the given name, if defined.
func ByName(name string) (Theme, bool) {
	for _, t := range InvestmentThemes {
		if t.Name == name {
			return t, true
		}
	}
	return Theme{}, false
}
