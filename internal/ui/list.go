package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/trackq/internal/formatter"
	"github.com/desertthunder/trackq/internal/models"
)

var (
	_ list.Item = sessionItem{}
	_ list.Item = queueItem{}
)

// sessionItem wraps [models.SessionSnapshot] to implement [list.Item].
type sessionItem struct {
	snapshot models.SessionSnapshot
}

func (i sessionItem) FilterValue() string { return formatter.SessionTitle(i.snapshot.Session) }
func (i sessionItem) Title() string       { return formatter.SessionTitle(i.snapshot.Session) }
func (i sessionItem) Description() string {
	s := i.snapshot.Session
	status := formatter.SessionStyle(s.Status()).Render(string(s.Status()))
	desc := fmt.Sprintf("%s • %s", status, formatter.Progress(s))
	if n := downloading(i.snapshot.Items); n > 0 {
		desc = fmt.Sprintf("%s • %d downloading", desc, n)
	}
	return desc
}

func downloading(items []*models.QueueItem) int {
	n := 0
	for _, item := range items {
		if item.Status() == models.ItemDownloading {
			n++
		}
	}
	return n
}

// queueItem wraps [models.QueueItem] to implement [list.Item].
type queueItem struct {
	item *models.QueueItem
}

func (i queueItem) FilterValue() string { return i.item.Label() }
func (i queueItem) Title() string       { return fmt.Sprintf("%d. %s", i.item.Sequence(), i.item.Label()) }
func (i queueItem) Description() string {
	desc := formatter.ItemStyle(i.item.Status()).Render(string(i.item.Status()))
	switch {
	case i.item.Status() == models.ItemFailed && i.item.ErrorMessage() != "":
		desc = fmt.Sprintf("%s • %s", desc, i.item.ErrorMessage())
	case i.item.FilePath() != "":
		desc = fmt.Sprintf("%s • %s", desc, i.item.FilePath())
	case i.item.Platform() != "":
		desc = fmt.Sprintf("%s • %s", desc, i.item.Platform())
	}
	return desc
}
