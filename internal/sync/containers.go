package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vonshlovens/notion-sync/internal/notion"
)

// ErrContainerNotFound is returned when a well-known page or database is
// missing under the root. SyncAll treats it as a skipped step.
var ErrContainerNotFound = errors.New("container not found")

// Container names a well-known page or database under the root
type Container struct {
	Title   string
	Aliases []string
}

// Well-known containers, in the order the seeder creates them
var (
	SiteContainer        = Container{Title: "Site Config", Aliases: []string{"Site Configuration", "Site Settings", "Settings"}}
	CollectionsContainer = Container{Title: "Collections", Aliases: []string{"Collection Settings"}}
	InjectionContainer   = Container{Title: "Code Injection", Aliases: []string{"Injection", "Custom Code"}}
	AdvancedContainer    = Container{Title: "Advanced Config", Aliases: []string{"Advanced", "Advanced Settings"}}
	HomeContainer        = Container{Title: "Home", Aliases: []string{"Home Page", "Homepage"}}
	AuthorsContainer     = Container{Title: "Authors"}
	NavbarContainer      = Container{Title: "Navbar Pages", Aliases: []string{"Navbar", "Pages"}}
)

// itemTableTitles name the item database inside a collection page
var itemTableTitles = []string{"Items", "Posts", "Entries"}

// Matches reports whether a block title names the container
func (c Container) Matches(title string) bool {
	title = strings.TrimSpace(title)
	if strings.EqualFold(title, c.Title) {
		return true
	}
	for _, a := range c.Aliases {
		if strings.EqualFold(title, a) {
			return true
		}
	}
	return false
}

func (c Container) String() string {
	return c.Title
}

// children returns the direct children of the root page, fetched once per run
func (e *Engine) children(ctx context.Context) ([]notion.Block, error) {
	if e.rootChildren != nil {
		return e.rootChildren, nil
	}
	blocks, err := notion.ChildrenAll(ctx, e.api, e.rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to list root children: %w", err)
	}
	if blocks == nil {
		blocks = []notion.Block{}
	}
	e.rootChildren = blocks
	return blocks, nil
}

// findContainer scans the root's children for a page or database matching c
func (e *Engine) findContainer(ctx context.Context, c Container) (notion.Block, error) {
	blocks, err := e.children(ctx)
	if err != nil {
		return notion.Block{}, err
	}
	for _, b := range blocks {
		if b.Type != notion.BlockChildPage && b.Type != notion.BlockChildDatabase {
			continue
		}
		if c.Matches(b.Title()) {
			return b, nil
		}
	}
	return notion.Block{}, fmt.Errorf("%w: %q", ErrContainerNotFound, c.Title)
}

// findDatabase locates a container and resolves it to a database id. A page
// container resolves to its first child database.
func (e *Engine) findDatabase(ctx context.Context, c Container) (string, error) {
	b, err := e.findContainer(ctx, c)
	if err != nil {
		return "", err
	}
	if b.Type == notion.BlockChildDatabase {
		return b.ID, nil
	}

	dbs, err := e.databasesIn(ctx, b.ID)
	if err != nil {
		return "", err
	}
	if len(dbs) == 0 {
		return "", fmt.Errorf("%w: page %q holds no database", ErrContainerNotFound, c.Title)
	}
	return dbs[0].ID, nil
}

// databasesIn lists the child databases of a page in remote order
func (e *Engine) databasesIn(ctx context.Context, pageID string) ([]notion.Block, error) {
	blocks, err := notion.ChildrenAll(ctx, e.api, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", pageID, err)
	}
	var dbs []notion.Block
	for _, b := range blocks {
		if b.Type == notion.BlockChildDatabase {
			dbs = append(dbs, b)
		}
	}
	return dbs, nil
}

// splitCollectionPage picks the item table of a collection page. The other
// databases hold the collection's extra sections.
func splitCollectionPage(dbs []notion.Block) (items string, sections []string) {
	pick := -1
	for i, b := range dbs {
		for _, t := range itemTableTitles {
			if strings.EqualFold(strings.TrimSpace(b.Title()), t) {
				pick = i
				break
			}
		}
		if pick >= 0 {
			break
		}
	}
	if pick < 0 && len(dbs) > 0 {
		pick = 0
	}

	for i, b := range dbs {
		if i == pick {
			items = b.ID
			continue
		}
		sections = append(sections, b.ID)
	}
	return items, sections
}
