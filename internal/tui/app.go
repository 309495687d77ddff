package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/apierr"
	"github.com/user/kiji/internal/app"
	"github.com/user/kiji/internal/form"
	"github.com/user/kiji/internal/store"
	"golang.org/x/sync/errgroup"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeDetail
	modeForm
	modeConfirm
	modeTags
)

type model struct {
	app         *app.App
	ctx         context.Context
	mode        mode
	prev        mode
	searchInput textinput.Model
	list        list.Model
	filter      string // applied search keyword, "" shows every article
	detail      api.Article
	pending     int64 // article awaiting delete confirmation
	editor      editor
	tagCursor   int
	status      string
	err         string
	width       int
	height      int
}

type articleItem struct {
	article api.Article
}

func (i articleItem) Title() string { return i.article.Title }

func (i articleItem) Description() string {
	desc := i.article.Summary
	if desc == "" {
		desc = i.article.URL
	}
	desc = truncate(desc, 80)
	if len(i.article.Tags) > 0 {
		desc += "  #" + strings.Join(i.article.Tags, " #")
	}
	return desc
}

func (i articleItem) FilterValue() string {
	return i.article.Title + " " + i.article.Summary + " " + i.article.Memo
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func newModel(a *app.App) model {
	ti := textinput.New()
	ti.Placeholder = "Search articles..."
	ti.CharLimit = 256
	ti.Width = 50

	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "kiji"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return model{
		app:         a,
		ctx:         context.Background(),
		searchInput: ti,
		list:        l,
	}
}

// Messages produced by async commands.
type (
	loadedMsg    struct{ err error }
	booksMsg     struct{}
	changedMsg   struct{}
	searchMsg    struct{ err error }
	savedMsg     struct{ err error }
	deletedMsg   struct{ err error }
	generatedMsg struct {
		article *api.GeneratedArticle
		err     error
	}
)

func (m model) Init() tea.Cmd {
	return tea.Batch(m.load(false), m.loadBooks())
}

// load fetches articles and tags concurrently. refresh bypasses the cache.
func (m model) load(refresh bool) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		ctx := m.ctx
		var g errgroup.Group
		if refresh {
			g.Go(func() error { return a.ArticleStore.Refetch(ctx) })
			g.Go(func() error { return a.TagStore.Refetch(ctx) })
		} else {
			g.Go(func() error { return a.ArticleStore.Load(ctx) })
			g.Go(func() error { return a.TagStore.Load(ctx) })
		}
		return loadedMsg{err: g.Wait()}
	}
}

// loadBooks never reports failure; the books line is simply not shown.
func (m model) loadBooks() tea.Cmd {
	a := m.app
	return func() tea.Msg {
		if err := a.BookStore.Load(m.ctx); err != nil {
			a.Logger.Debug("book recommendations unavailable", "error", err)
		}
		return booksMsg{}
	}
}

func (m model) doSearch(keyword string) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		return searchMsg{err: a.Search.Search(m.ctx, keyword)}
	}
}

func (m model) doDelete(id int64) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		return deletedMsg{err: a.ArticleStore.Delete(m.ctx, id)}
	}
}

func (m model) doGenerate(url, memo string) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		g, err := a.Generator.Generate(m.ctx, url, memo)
		return generatedMsg{article: g, err: err}
	}
}

func (m model) doSave(f *form.ArticleForm, id int64, in api.ArticleInput) tea.Cmd {
	a := m.app
	return func() tea.Msg {
		var err error
		if f.Editing() {
			_, err = a.ArticleStore.Update(m.ctx, id, in)
		} else {
			_, err = a.ArticleStore.Create(m.ctx, in)
		}
		if err != nil {
			return savedMsg{err: err}
		}
		for _, name := range in.Tags {
			if f.IsNew(name) {
				a.TagStore.Invalidate()
				if err := a.TagStore.Load(m.ctx); err != nil {
					a.Logger.Warn("failed to reload tags", "error", err)
				}
				break
			}
		}
		return savedMsg{}
	}
}

// articles returns what the list shows: search results while a keyword is
// applied, every article otherwise.
func (m model) articles() []api.Article {
	if m.filter != "" {
		return m.app.Search.State().Results
	}
	return m.app.ArticleStore.State().Articles
}

func (m *model) refreshItems() tea.Cmd {
	articles := m.articles()
	items := make([]list.Item, 0, len(articles))
	for _, a := range articles {
		items = append(items, articleItem{article: a})
	}
	return m.list.SetItems(items)
}

func (m model) selected() (api.Article, bool) {
	item, ok := m.list.SelectedItem().(articleItem)
	if !ok {
		return api.Article{}, false
	}
	return item.article, true
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeDetail:
			return m.updateDetail(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeTags:
			return m.updateTags(msg)
		}
		return m.updateList(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-6)
		m.searchInput.Width = msg.Width - 20

	case loadedMsg:
		if msg.err != nil {
			m.err = apierr.UserMessage(msg.err)
			m.status = ""
		} else {
			m.err = ""
			m.status = fmt.Sprintf("%d articles", len(m.app.ArticleStore.State().Articles))
		}
		return m, m.refreshItems()

	case changedMsg:
		return m, m.refreshItems()

	case booksMsg:
		return m, nil

	case searchMsg:
		if m.filter == "" {
			return m, nil
		}
		st := m.app.Search.State()
		if st.Loading || st.Keyword != m.filter {
			return m, nil
		}
		if msg.err != nil {
			m.err = apierr.UserMessage(msg.err)
		} else {
			m.err = ""
			m.status = fmt.Sprintf("%d results for %q", len(st.Results), m.filter)
		}
		return m, m.refreshItems()

	case deletedMsg:
		if msg.err != nil {
			m.err = apierr.UserMessage(msg.err)
		} else {
			m.err = ""
			m.status = "Deleted"
		}
		if m.filter != "" {
			return m, tea.Batch(m.refreshItems(), m.doSearch(m.filter))
		}
		return m, m.refreshItems()

	case generatedMsg:
		if m.mode != modeForm || !m.editor.generating {
			return m, nil
		}
		if msg.err != nil {
			m.editor.generating = false
			m.editor.genErr = form.GenerateErrorMessage(msg.err)
			return m, nil
		}
		m.editor.applyGenerated(msg.article)
		return m, nil

	case savedMsg:
		if m.mode != modeForm {
			return m, nil
		}
		m.editor.saving = false
		if msg.err != nil {
			m.editor.saveErr = apierr.UserMessage(msg.err)
			return m, nil
		}
		m.mode = modeList
		m.err = ""
		m.status = "Saved"
		return m, m.refreshItems()
	}

	var cmd tea.Cmd
	if m.mode == modeSearch {
		m.searchInput, cmd = m.searchInput.Update(msg)
	} else {
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.mode = modeSearch
		return m, m.searchInput.Focus()
	case "esc":
		if m.filter != "" {
			m.clearSearch()
			return m, m.refreshItems()
		}
	case "j", "down":
		m.list.CursorDown()
	case "k", "up":
		m.list.CursorUp()
	case "g":
		m.list.Select(0)
	case "G":
		if n := len(m.list.Items()); n > 0 {
			m.list.Select(n - 1)
		}
	case "o":
		if a, ok := m.selected(); ok {
			openBrowser(a.URL)
		}
	case "enter":
		if a, ok := m.selected(); ok {
			m.detail = a
			m.mode = modeDetail
		}
	case "n":
		return m.openForm(form.New(m.app.TagStore.State().Tags), 0)
	case "e":
		if a, ok := m.selected(); ok {
			return m.openForm(form.NewEditForm(a, m.app.TagStore.State().Tags), a.ID)
		}
	case "d":
		if a, ok := m.selected(); ok {
			m.confirmDelete(a)
		}
	case "t":
		m.mode = modeTags
		m.tagCursor = 0
	case "r":
		m.status = "Refreshing..."
		return m, tea.Batch(m.load(true), m.loadBooks())
	}
	return m, nil
}

func (m *model) clearSearch() {
	m.filter = ""
	m.searchInput.SetValue("")
	m.app.Search.Clear()
	m.status = ""
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.searchInput.Blur()
		m.clearSearch()
		return m, m.refreshItems()
	case "enter":
		m.mode = modeList
		m.searchInput.Blur()
		keyword := strings.TrimSpace(m.searchInput.Value())
		if keyword == "" {
			m.clearSearch()
			return m, m.refreshItems()
		}
		m.filter = keyword
		m.status = "Searching..."
		return m, m.doSearch(keyword)
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.mode = modeList
	case "o":
		openBrowser(m.detail.URL)
	case "e":
		return m.openForm(form.NewEditForm(m.detail, m.app.TagStore.State().Tags), m.detail.ID)
	case "d":
		m.confirmDelete(m.detail)
	}
	return m, nil
}

func (m *model) confirmDelete(a api.Article) {
	m.prev = m.mode
	m.pending = a.ID
	m.detail = a
	m.mode = modeConfirm
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = modeList
		m.status = "Deleting..."
		return m, m.doDelete(m.pending)
	case "n", "N", "esc":
		m.mode = m.prev
	}
	return m, nil
}

func (m model) openForm(f *form.ArticleForm, id int64) (tea.Model, tea.Cmd) {
	m.editor = newEditor(f, id)
	m.mode = modeForm
	return m, textinput.Blink
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := &m.editor
	switch msg.String() {
	case "esc":
		m.mode = modeList
		return m, nil
	case "ctrl+g":
		if e.generating || e.saving {
			return m, nil
		}
		e.sync()
		if text := e.form.CheckGenerate(); text != "" {
			e.genErr = text
			return m, nil
		}
		e.generating = true
		e.genErr = ""
		return m, m.doGenerate(strings.TrimSpace(e.form.URL), strings.TrimSpace(e.form.Memo))
	case "ctrl+s":
		if e.generating || e.saving {
			return m, nil
		}
		e.sync()
		in, err := e.form.Submit()
		if err != nil {
			e.saveErr = "入力内容を確認してください"
			return m, nil
		}
		e.saving = true
		e.saveErr = ""
		return m, m.doSave(e.form, e.id, in)
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.update(msg)
	return m, cmd
}

func (m model) tagCounts() []store.TagCount {
	return store.TagCounts(m.app.ArticleStore.State().Articles, m.app.TagStore.State().Tags)
}

func (m model) updateTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.tagCounts())
	switch msg.String() {
	case "esc", "q", "t":
		m.mode = modeList
	case "j", "down":
		if m.tagCursor < n-1 {
			m.tagCursor++
		}
	case "k", "up":
		if m.tagCursor > 0 {
			m.tagCursor--
		}
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	searchStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	booksStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("180"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(1, 2)
)

func (m model) View() string {
	switch m.mode {
	case modeForm:
		return m.editor.view()
	case modeDetail:
		return m.detailView()
	case modeConfirm:
		return m.confirmView()
	case modeTags:
		return m.tagsView()
	}

	var b strings.Builder
	b.WriteString(searchStyle.Render(m.searchInput.View()))
	b.WriteString("\n")
	if line := m.booksLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.list.View())
	b.WriteString("\n")
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
	} else {
		b.WriteString(statusStyle.Render(m.status))
	}

	help := "[j/k]nav [g/G]top/end [/]search [o]pen [enter]detail [n]ew [e]dit [d]elete [t]ags [r]efresh [q]uit"
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

// booksLine is empty unless there is at least one recommendation.
func (m model) booksLine() string {
	books := m.app.BookStore.State().Books
	if len(books) == 0 {
		return ""
	}
	parts := make([]string, 0, len(books))
	for _, bk := range books {
		if bk.Author != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", bk.Title, bk.Author))
			continue
		}
		parts = append(parts, bk.Title)
	}
	return booksStyle.Render("おすすめの本: " + strings.Join(parts, " / "))
}

func (m model) detailView() string {
	a := m.detail
	var b strings.Builder
	b.WriteString(titleStyle.Render(a.Title))
	b.WriteString("\n\n")
	b.WriteString(a.URL)
	b.WriteString("\n\n")
	b.WriteString(a.Summary)
	b.WriteString("\n")
	if len(a.Tags) > 0 {
		b.WriteString("\n")
		b.WriteString(tagStyle.Render("#" + strings.Join(a.Tags, " #")))
		b.WriteString("\n")
	}
	if a.Memo != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Memo: " + a.Memo))
		b.WriteString("\n")
	}
	if a.CreatedAt != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Created " + a.CreatedAt))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("[o]pen [e]dit [d]elete [esc]back"))
	return b.String()
}

func (m model) confirmView() string {
	body := fmt.Sprintf("Delete %q?\n\n[y]es  [n]o", m.detail.Title)
	return dialogStyle.Render(body)
}

func (m model) tagsView() string {
	counts := m.tagCounts()
	var b strings.Builder
	b.WriteString(titleStyle.Render("Tags"))
	b.WriteString("\n\n")
	if len(counts) == 0 {
		b.WriteString(dimStyle.Render("No tags yet."))
		b.WriteString("\n")
	}
	for i, c := range counts {
		line := fmt.Sprintf("%-30s %d", c.Name, c.Count)
		if i == m.tagCursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("[j/k]nav [esc]back"))
	return b.String()
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}
	if cmd != nil {
		cmd.Start()
	}
}

// Run starts the TUI application
func Run(a *app.App) error {
	p := tea.NewProgram(newModel(a), tea.WithAltScreen())
	changed := func() { go p.Send(changedMsg{}) }
	defer a.ArticleStore.Subscribe(changed)()
	defer a.BookStore.Subscribe(changed)()
	_, err := p.Run()
	return err
}
