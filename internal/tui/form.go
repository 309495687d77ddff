package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/user/kiji/internal/api"
	"github.com/user/kiji/internal/form"
)

const (
	inputTitle = iota
	inputURL
	inputSummary
	inputMemo
	inputTag
	inputCount
)

var inputLabels = [inputCount]string{"Title", "URL", "Summary", "Memo", "Tags"}

// editor is the create/edit form. Values live in the inputs while typing
// and are copied into the form before every validation.
type editor struct {
	form       *form.ArticleForm
	id         int64
	inputs     [inputCount]textinput.Model
	focus      int
	tagErr     string
	generating bool
	genErr     string
	saving     bool
	saveErr    string
}

func newEditor(f *form.ArticleForm, id int64) editor {
	e := editor{form: f, id: id}
	limits := [inputCount]int{form.MaxTitleLen, form.MaxURLLen, form.MaxSummaryLen, 0, form.MaxTagLen}
	placeholders := [inputCount]string{"", "https://", "", "optional", "type a tag and press enter"}
	for i := range e.inputs {
		ti := textinput.New()
		ti.CharLimit = limits[i]
		ti.Placeholder = placeholders[i]
		ti.Width = 60
		e.inputs[i] = ti
	}
	e.load()
	e.inputs[inputTitle].Focus()
	return e
}

// load copies form values into the inputs.
func (e *editor) load() {
	e.inputs[inputTitle].SetValue(e.form.Title)
	e.inputs[inputURL].SetValue(e.form.URL)
	e.inputs[inputSummary].SetValue(e.form.Summary)
	e.inputs[inputMemo].SetValue(e.form.Memo)
}

// sync copies input values into the form.
func (e *editor) sync() {
	e.form.Title = e.inputs[inputTitle].Value()
	e.form.URL = e.inputs[inputURL].Value()
	e.form.Summary = e.inputs[inputSummary].Value()
	e.form.Memo = e.inputs[inputMemo].Value()
}

func fieldOf(input int) (form.Field, bool) {
	switch input {
	case inputTitle:
		return form.FieldTitle, true
	case inputURL:
		return form.FieldURL, true
	case inputSummary:
		return form.FieldSummary, true
	}
	return 0, false
}

// move shifts focus by delta, validating the field being left.
func (e *editor) move(delta int) tea.Cmd {
	e.sync()
	if field, ok := fieldOf(e.focus); ok {
		e.form.Blur(field)
	}
	e.inputs[e.focus].Blur()
	e.focus = (e.focus + delta + inputCount) % inputCount
	return e.inputs[e.focus].Focus()
}

// addTag picks the tag typed in the tag input.
func (e *editor) addTag() {
	v := e.inputs[inputTag].Value()
	if err := e.form.PickTag(v); err != nil {
		e.tagErr = err.Error()
		return
	}
	e.tagErr = ""
	e.inputs[inputTag].SetValue("")
}

// dropLastTag deselects the most recently selected tag.
func (e *editor) dropLastTag() {
	selected := e.form.Selected()
	if len(selected) == 0 {
		return
	}
	e.form.ToggleTag(selected[len(selected)-1])
}

func (e *editor) applyGenerated(g *api.GeneratedArticle) {
	e.generating = false
	e.genErr = ""
	e.form.ApplyGenerated(g)
	e.load()
}

func (e editor) update(msg tea.KeyMsg) (editor, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return e, e.move(1)
	case "shift+tab", "up":
		return e, e.move(-1)
	case "enter":
		if e.focus == inputTag {
			e.addTag()
			return e, nil
		}
		return e, e.move(1)
	case "backspace":
		if e.focus == inputTag && e.inputs[inputTag].Value() == "" {
			e.dropLastTag()
			return e, nil
		}
	}
	var cmd tea.Cmd
	e.inputs[e.focus], cmd = e.inputs[e.focus].Update(msg)
	return e, cmd
}

var (
	labelStyle   = lipgloss.NewStyle().Width(9).Foreground(lipgloss.Color("240"))
	focusStyle   = lipgloss.NewStyle().Width(9).Foreground(lipgloss.Color("86")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	newTagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

func (e editor) view() string {
	var b strings.Builder

	heading := "New article"
	if e.form.Editing() {
		heading = fmt.Sprintf("Edit article %d", e.id)
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n\n")

	for i := range e.inputs {
		label := labelStyle
		if i == e.focus {
			label = focusStyle
		}
		b.WriteString(label.Render(inputLabels[i]))
		b.WriteString(e.inputs[i].View())
		b.WriteString("\n")

		if field, ok := fieldOf(i); ok {
			if msg := e.form.Error(field); msg != "" {
				b.WriteString(labelStyle.Render(""))
				b.WriteString(errorStyle.Render(msg))
				b.WriteString("\n")
			}
		}
		if i == inputTag {
			b.WriteString(labelStyle.Render(""))
			b.WriteString(e.tagsLine())
			b.WriteString("\n")
			if e.tagErr != "" {
				b.WriteString(labelStyle.Render(""))
				b.WriteString(errorStyle.Render(e.tagErr))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	switch {
	case e.generating:
		b.WriteString(pendingStyle.Render("Generating..."))
	case e.saving:
		b.WriteString(pendingStyle.Render("Saving..."))
	case e.genErr != "":
		b.WriteString(errorStyle.Render(e.genErr))
	case e.saveErr != "":
		b.WriteString(errorStyle.Render(e.saveErr))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("[tab]next [enter]add tag [backspace]drop tag [ctrl+g]generate [ctrl+s]save [esc]cancel"))
	return b.String()
}

func (e editor) tagsLine() string {
	selected := e.form.Selected()
	if len(selected) == 0 {
		return pendingStyle.Render("no tags")
	}
	parts := make([]string, 0, len(selected))
	for _, name := range selected {
		if e.form.IsNew(name) {
			parts = append(parts, newTagStyle.Render("#"+name+" (new)"))
			continue
		}
		parts = append(parts, tagStyle.Render("#"+name))
	}
	return strings.Join(parts, " ")
}
