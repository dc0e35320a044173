package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/rize/internal/models"
)

var _ list.Item = recordItem{}

// recordItem wraps [models.ListRecord] to implement [list.Item].
type recordItem struct {
	record *models.ListRecord
}

func (i recordItem) FilterValue() string { return i.record.Text }
func (i recordItem) Title() string       { return i.record.Text }
func (i recordItem) Description() string {
	desc := fmt.Sprintf("#%d", i.record.ID)
	if !i.record.CreatedAt.IsZero() {
		desc = fmt.Sprintf("%s • %s", desc, i.record.CreatedAt.Local().Format("Jan 2 15:04"))
	}
	return desc
}

func recordItems(records []*models.ListRecord) []list.Item {
	items := make([]list.Item, len(records))
	for i, r := range records {
		items[i] = recordItem{record: r}
	}
	return items
}

func newRecordList() list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	return l
}
