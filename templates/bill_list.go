package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// BillListItem is one client bill in a project's bill list.
type BillListItem struct {
	ID        string
	Title     string
	Status    string
	SortOrder int
}

// BillListData holds a project and its client bills.
type BillListData struct {
	ProjectID   string
	ProjectName string
	Bills       []BillListItem
}

// BillListPage renders the list of client bills of a project.
func BillListPage(data BillListData) templ.Component {
	return Layout("Client bills | "+data.ProjectName, BillListContent(data))
}

// BillListContent renders the bill list without the document shell.
func BillListContent(data BillListData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := writeEscaped(w, `<section class="bill-list"><h1>%s</h1>`, data.ProjectName); err != nil {
			return err
		}
		if len(data.Bills) == 0 {
			_, err := io.WriteString(w, `<p class="empty">No client bills yet.</p></section>`)
			return err
		}
		if _, err := io.WriteString(w, `<ol>`); err != nil {
			return err
		}
		for _, b := range data.Bills {
			href := templ.URL(fmt.Sprintf("/projects/%s/bills/%s", data.ProjectID, b.ID))
			if err := writeEscaped(w, `<li><a href="%s">%s</a> <span class="status status-%s">%s</span></li>`,
				string(href), b.Title, b.Status, b.Status); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ol></section>`)
		return err
	})
}
