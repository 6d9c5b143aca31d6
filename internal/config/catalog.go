package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Project is one configured knowledge base: the QnA project name, the
// entity keywords that route a question to it, and the example questions
// the presentation layer offers for it.
type Project struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Examples []string `yaml:"examples"`
}

// Catalog is the enumerated set of projects and the entity categories
// eligible for routing. Order matters: the first project is the session
// default and routing scans projects in catalog order.
type Catalog struct {
	Projects          []Project `yaml:"projects"`
	RoutingCategories []string  `yaml:"routing_categories"`
}

// DefaultCatalog returns the built-in two-project catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Projects: []Project{
			{
				Name:     "CrewAi",
				Keywords: []string{"crewai"},
				Examples: []string{
					"How does the CrewAi agent work?",
					"What are the advantages of the CrewAi agent?",
					"How does the CrewAi system integrate with other systems?",
					"What are the core functionalities of the CrewAi platform?",
					"I'm curious about the Reporting tool used by the system.",
					"Can you explain the deployment process of the CrewAi solution?",
					"How does the CrewAi system enhance operational efficiency?",
					"What security measures does the CrewAi platform implement?",
					"How can the CrewAi solution be customized for enterprise needs?",
					"What support options are available for CrewAi?",
				},
			},
			{
				Name:     "LangGraph",
				Keywords: []string{"langgraph"},
				Examples: []string{
					"How is a graph structured in LangGraph?",
					"What are the use cases of LangGraph?",
					"How does LangGraph process complex queries?",
					"What are the main functions of the Reporting tool?",
					"What are the main components of LangGraph's architecture?",
					"How scalable is LangGraph for large datasets?",
					"Could you list the features of the Security tool?",
					"Can you explain the data model behind LangGraph?",
					"How does LangGraph integrate with other systems?",
					"What performance optimizations are built into LangGraph?",
				},
			},
		},
		RoutingCategories: []string{"agent", "framework", "tool"},
	}
}

// LoadCatalog reads the project catalog from a YAML file, or returns the
// built-in catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project catalog: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parsing project catalog: %w", err)
	}
	if len(cat.RoutingCategories) == 0 {
		cat.RoutingCategories = DefaultCatalog().RoutingCategories
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks catalog consistency.
func (c *Catalog) Validate() error {
	if len(c.Projects) == 0 {
		return fmt.Errorf("project catalog must define at least one project")
	}
	seen := make(map[string]bool, len(c.Projects))
	for _, p := range c.Projects {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("project catalog contains a project with no name")
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("duplicate project %q in catalog", p.Name)
		}
		seen[key] = true
	}
	return nil
}

// DefaultProject returns the first configured project name.
func (c *Catalog) DefaultProject() string {
	return c.Projects[0].Name
}

// ProjectNames returns project names in catalog (priority) order.
func (c *Catalog) ProjectNames() []string {
	names := make([]string, 0, len(c.Projects))
	for _, p := range c.Projects {
		names = append(names, p.Name)
	}
	return names
}

// Lookup returns the project with the given name (case-insensitive).
func (c *Catalog) Lookup(name string) (*Project, bool) {
	for i := range c.Projects {
		if strings.EqualFold(c.Projects[i].Name, name) {
			return &c.Projects[i], true
		}
	}
	return nil, false
}
