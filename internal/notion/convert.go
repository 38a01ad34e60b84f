package notion

import (
	"encoding/json"
	"fmt"

	"github.com/jomei/notionapi"
)

// recode copies a value between notionapi's types and ours through the JSON
// wire format both sides decode.
func recode(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func fromPage(p *notionapi.Page) (*Page, error) {
	var out Page
	if err := recode(p, &out); err != nil {
		return nil, fmt.Errorf("failed to convert page %s: %w", p.ID, err)
	}
	return &out, nil
}

// toBlocks converts blocks for a create or append call. Only the payload is
// sent; ids and child flags belong to the remote.
func toBlocks(blocks []Block) ([]notionapi.Block, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	wire := make([]Block, len(blocks))
	for i, b := range blocks {
		b.Object = "block"
		b.ID = ""
		b.HasChildren = false
		wire[i] = b
	}

	var out notionapi.Blocks
	if err := recode(wire, &out); err != nil {
		return nil, fmt.Errorf("failed to encode blocks: %w", err)
	}
	return out, nil
}

// withoutEmpty drops unset scalar properties. notionapi has no null for them,
// and leaving a property out of a create call leaves it empty.
func (p Properties) withoutEmpty() Properties {
	out := make(Properties, len(p))
	for name, v := range p {
		switch v := v.(type) {
		case SelectProperty:
			if v.Select == nil {
				continue
			}
		case StatusProperty:
			if v.Status == nil {
				continue
			}
		case URLProperty:
			if v.URL == nil {
				continue
			}
		case EmailProperty:
			if v.Email == nil {
				continue
			}
		case NumberProperty:
			if v.Number == nil {
				continue
			}
		}
		out[name] = v
	}
	return out
}
