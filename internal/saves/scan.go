// Package saves is the per-title backup browser: a titles list and, for the
// chosen title, local and cloud backup lists.
package saves

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/backup"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/sfo"
	"github.com/atomicstack/save-cloud/internal/state"
)

// Scan lists every title with save data. A title found under several save
// roots keeps the first. Names come from names, then from the save's
// PARAM.SFO, then fall back to the id.
func Scan(p *backup.Pipeline, names map[string]string) []state.Title {
	seen := map[string]bool{}
	var titles []state.Title
	for _, root := range backup.SaveRoots {
		host, err := p.Resolve(root)
		if err != nil {
			continue
		}
		entries, err := os.ReadDir(host)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || seen[e.Name()] {
				continue
			}
			seen[e.Name()] = true
			titles = append(titles, state.Title{
				ID:      e.Name(),
				Name:    titleName(e.Name(), filepath.Join(host, e.Name()), names),
				SaveDir: backend.JoinPath(root, e.Name()),
			})
		}
	}
	sort.Slice(titles, func(i, j int) bool { return titles[i].ID < titles[j].ID })
	events.Saves.Titles(len(titles))
	return titles
}

func titleName(id, hostDir string, names map[string]string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	params, err := sfo.Read(filepath.Join(hostDir, "sce_sys", "param.sfo"))
	if err == nil {
		if p, ok := sfo.Lookup(params, "TITLE"); ok && p.String() != "" {
			return p.String()
		}
	}
	return id
}
