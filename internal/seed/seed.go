// Package seed loads the starter folders and notes a new store is filled with.
//
// The default content is an embedded YAML document; SEED_FILE can point at
// another file with the same shape:
//
//	folders:
//	  - name: Personal
//	    icon: fa-user
//	notes:
//	  - title: Hello
//	    folder: Personal   # optional, matched by folder name
//	    content: |
//	      # Hello
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sakif/forgenotes/internal/model"
	"github.com/sakif/forgenotes/internal/repository"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Data struct {
	Folders []Folder `yaml:"folders"`
	Notes   []Note   `yaml:"notes"`
}

type Folder struct {
	Name string `yaml:"name"`
	Icon string `yaml:"icon"`
}

type Note struct {
	Title   string `yaml:"title"`
	Folder  string `yaml:"folder"`
	Content string `yaml:"content"`
}

// Defaults returns the embedded starter content.
func Defaults() (*Data, error) {
	return Parse(defaultsYAML)
}

// Load reads seed data from path, or the defaults when path is empty.
func Load(path string) (*Data, error) {
	if path == "" {
		return Defaults()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: reading %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and checks a seed document.
func Parse(raw []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("seed: parsing yaml: %w", err)
	}

	names := make(map[string]bool, len(d.Folders))
	for i, f := range d.Folders {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("seed: folder %d has no name", i)
		}
		names[strings.ToLower(f.Name)] = true
	}
	for i, n := range d.Notes {
		if strings.TrimSpace(n.Title) == "" {
			return nil, fmt.Errorf("seed: note %d has no title", i)
		}
		if n.Folder != "" && !names[strings.ToLower(n.Folder)] {
			return nil, fmt.Errorf("seed: note %q references unknown folder %q", n.Title, n.Folder)
		}
	}

	return &d, nil
}

// Apply creates the folders, then the notes, in document order. Folder
// references are resolved to the IDs the store hands out.
func Apply(ctx context.Context, store repository.Store, d *Data) error {
	folderIDs := make(map[string]int64, len(d.Folders))
	for _, f := range d.Folders {
		folder := &model.Folder{Name: f.Name, Icon: f.Icon}
		if err := store.CreateFolder(ctx, folder); err != nil {
			return fmt.Errorf("seed: creating folder %q: %w", f.Name, err)
		}
		folderIDs[strings.ToLower(f.Name)] = folder.ID
	}

	for _, n := range d.Notes {
		note := &model.Note{Title: n.Title, Content: n.Content}
		if n.Folder != "" {
			note.FolderID = model.Int64(folderIDs[strings.ToLower(n.Folder)])
		}
		if err := store.CreateNote(ctx, note); err != nil {
			return fmt.Errorf("seed: creating note %q: %w", n.Title, err)
		}
	}

	return nil
}

// IfEmpty applies d only when the store holds nothing yet. It reports
// whether seeding happened.
//
// WHY A TRANSACTION?
// "Is it empty?" is the only record of whether seeding ran. If a boot died
// after the first folder was written, every later boot would see a
// non-empty store and never finish the job. Stores that implement
// repository.Atomic therefore check and seed as one unit: either all of d
// lands or none of it does.
func IfEmpty(ctx context.Context, store repository.Store, d *Data) (bool, error) {
	a, ok := store.(repository.Atomic)
	if !ok {
		return seedIfEmpty(ctx, store, d)
	}

	var seeded bool
	err := a.Atomically(ctx, func(tx repository.Store) error {
		var err error
		seeded, err = seedIfEmpty(ctx, tx, d)
		return err
	})
	if err != nil {
		return false, err
	}
	return seeded, nil
}

func seedIfEmpty(ctx context.Context, store repository.Store, d *Data) (bool, error) {
	empty, err := store.Empty(ctx)
	if err != nil {
		return false, err
	}
	if !empty {
		return false, nil
	}
	if err := Apply(ctx, store, d); err != nil {
		return false, err
	}
	return true, nil
}
