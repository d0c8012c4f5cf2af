package domain

import (
	"fmt"
	"strings"
)

// ChecklistItem is one named task on a stage checklist.
type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Checklist keeps items in insertion order.
type Checklist []ChecklistItem

// Add appends a new open item.
func (c *Checklist) Add(id, text string) (ChecklistItem, error) {
	id = strings.TrimSpace(id)
	text = strings.TrimSpace(text)
	if id == "" {
		return ChecklistItem{}, ErrInvalidID
	}
	if text == "" {
		return ChecklistItem{}, ErrInvalidText
	}
	if c.index(id) >= 0 {
		return ChecklistItem{}, fmt.Errorf("%w: duplicate checklist id %q", ErrValidation, id)
	}
	item := ChecklistItem{ID: id, Text: text}
	*c = append(*c, item)
	return item, nil
}

// Toggle flips the done flag of one item.
func (c Checklist) Toggle(id string) (ChecklistItem, error) {
	idx := c.index(id)
	if idx < 0 {
		return ChecklistItem{}, fmt.Errorf("%w: checklist item %q", ErrNotFound, id)
	}
	c[idx].Done = !c[idx].Done
	return c[idx], nil
}

// Rename replaces the text of one item.
func (c Checklist) Rename(id, text string) (ChecklistItem, error) {
	idx := c.index(id)
	if idx < 0 {
		return ChecklistItem{}, fmt.Errorf("%w: checklist item %q", ErrNotFound, id)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ChecklistItem{}, ErrInvalidText
	}
	c[idx].Text = text
	return c[idx], nil
}

// Remove deletes one item. Missing ids fail with ErrNotFound.
func (c *Checklist) Remove(id string) error {
	idx := c.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: checklist item %q", ErrNotFound, id)
	}
	*c = append((*c)[:idx], (*c)[idx+1:]...)
	return nil
}

// MarkAll sets every item to done.
func (c Checklist) MarkAll(done bool) {
	for i := range c {
		c[i].Done = done
	}
}

// Pending returns the number of open items.
func (c Checklist) Pending() int {
	n := 0
	for _, item := range c {
		if !item.Done {
			n++
		}
	}
	return n
}

// Complete reports whether no item is open.
func (c Checklist) Complete() bool {
	return c.Pending() == 0
}

// Progress returns done and total counts.
func (c Checklist) Progress() (done, total int) {
	return len(c) - c.Pending(), len(c)
}

func (c Checklist) index(id string) int {
	id = strings.TrimSpace(id)
	for i, item := range c {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// normalizeChecklist trims items, drops blank text, and rejects duplicate ids.
func normalizeChecklist(in Checklist) (Checklist, error) {
	out := make(Checklist, 0, len(in))
	seen := map[string]struct{}{}
	for _, item := range in {
		item.ID = strings.TrimSpace(item.ID)
		item.Text = strings.TrimSpace(item.Text)
		if item.Text == "" {
			continue
		}
		if item.ID == "" {
			return nil, ErrInvalidID
		}
		if _, exists := seen[item.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate checklist id %q", ErrValidation, item.ID)
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out, nil
}
