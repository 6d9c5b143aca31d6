// Package routing decides which knowledge base project should answer a
// question, based on the entities the classifier detected.
package routing

import (
	"strings"

	"github.com/carlosalonso99-tajamar/qna-conversational/internal/language"
)

// ProjectKeywords pairs a project with the entity keywords that route to it.
type ProjectKeywords struct {
	Project  string
	Keywords []string
}

// Table holds the fixed routing configuration: project priority order,
// per-project keyword sets, and the entity categories eligible for routing.
// Built once at startup, never mutated afterwards.
type Table struct {
	projects   []string
	keywords   map[string][]string
	categories map[string]struct{}
}

// NewTable builds a routing table. Project order is priority order; keyword
// and category matching is case-insensitive.
func NewTable(projects []ProjectKeywords, categories []string) *Table {
	t := &Table{
		keywords:   make(map[string][]string, len(projects)),
		categories: make(map[string]struct{}, len(categories)),
	}
	for _, p := range projects {
		t.projects = append(t.projects, p.Project)
		kws := make([]string, 0, len(p.Keywords))
		for _, kw := range p.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		t.keywords[p.Project] = kws
	}
	for _, c := range categories {
		t.categories[strings.ToLower(c)] = struct{}{}
	}
	return t
}

// Projects returns the configured project names in priority order.
func (t *Table) Projects() []string {
	out := make([]string, len(t.projects))
	copy(out, t.projects)
	return out
}

// Contains reports whether project is a configured routing target.
func (t *Table) Contains(project string) bool {
	for _, p := range t.projects {
		if p == project {
			return true
		}
	}
	return false
}

// Route picks the project that should answer this turn. The current project
// is the sticky default: with no routing signal the session stays where it
// is. Entities are scanned in classifier order; the first entity whose
// category is routable and whose text contains a project keyword wins, and
// no later entity is examined.
func (t *Table) Route(current string, entities []language.Entity) string {
	for _, e := range entities {
		if _, ok := t.categories[strings.ToLower(e.Category)]; !ok {
			continue
		}
		text := strings.ToLower(e.Text)
		if text == "" {
			continue
		}
		for _, project := range t.projects {
			for _, kw := range t.keywords[project] {
				if strings.Contains(text, kw) {
					return project
				}
			}
		}
	}
	return current
}
