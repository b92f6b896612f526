package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/mrtmm/manila-ui/internal/messages"
	"github.com/mrtmm/manila-ui/internal/tables"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Страницы дашборда.
const (
	pageTable          = "table_page.html"
	pageSnapshotDetail = "snapshot_detail.html"
	pageShareDetail    = "share_detail.html"
	pageForm           = "form.html"
)

// Общие шаблоны, подключаемые к каждой странице.
var baseTemplates = []string{"templates/layout.html", "templates/table.html"}

// Renderer отрисовывает HTML страницы и фрагменты строк таблиц.
type Renderer struct {
	pages map[string]*template.Template
	rows  *template.Template
}

// pageData - данные общего шаблона страницы.
type pageData struct {
	Title    string
	Messages []messages.Message
	Content  any
}

// tablePage - страница с таблицей.
type tablePage struct {
	Table *tables.View
	Back  string
}

// formField - поле формы.
type formField struct {
	Name    string
	Label   string
	Type    string // text, number, textarea, select, checkbox, hidden
	Value   string
	Options []string
	Help    string
	Error   string
}

// formPage - страница с формой.
type formPage struct {
	Action string
	Cancel string
	Submit string
	Fields []formField
	Errors fieldErrors
}

// withErrors проставляет ошибки валидации полям формы.
func (p *formPage) withErrors(errs fieldErrors) *formPage {
	p.Errors = errs
	for i := range p.Fields {
		p.Fields[i].Error = errs[p.Fields[i].Name]
	}
	return p
}

var templateFuncs = template.FuncMap{
	"attrs": htmlAttrs,
}

// NewRenderer разбирает встроенные шаблоны.
func NewRenderer() (*Renderer, error) {
	pages := make(map[string]*template.Template)
	for _, page := range []string{pageTable, pageSnapshotDetail, pageShareDetail, pageForm} {
		files := append(append([]string{}, baseTemplates...), "templates/"+page)
		tmpl, err := template.New(page).Funcs(templateFuncs).ParseFS(templatesFS, files...)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора шаблона %s: %w", page, err)
		}
		pages[page] = tmpl
	}

	rows, err := template.New("rows").Funcs(templateFuncs).ParseFS(templatesFS, "templates/table.html")
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора шаблона строк: %w", err)
	}
	return &Renderer{pages: pages, rows: rows}, nil
}

// Page отрисовывает страницу с сообщениями текущего запроса.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, status int, page, title string, content any) {
	tmpl, ok := rn.pages[page]
	if !ok {
		log.Printf("[Renderer:Page] Неизвестная страница %s", page)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	data := pageData{Title: title, Content: content}
	if collector, ok := messages.FromContext(r.Context()); ok {
		data.Messages = collector.Drain()
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("[Renderer:Page] Ошибка отрисовки страницы %s: %v", page, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, buf.Bytes())
}

// Row отрисовывает фрагмент строки таблицы для ajax-обновления.
func (rn *Renderer) Row(w http.ResponseWriter, row *tables.RowView) {
	var buf bytes.Buffer
	if err := rn.rows.ExecuteTemplate(&buf, "row", row); err != nil {
		log.Printf("[Renderer:Row] Ошибка отрисовки строки %s: %v", row.ID, err)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Printf("[Renderer] Ошибка записи ответа: %v", err)
	}
}

// htmlAttrs собирает атрибуты колонки. Имена атрибутов задаются в коде, значения экранируются.
func htmlAttrs(attrs map[string]string) template.HTMLAttr {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, ` %s="%s"`, template.HTMLEscapeString(k), template.HTMLEscapeString(attrs[k]))
	}
	//nolint:gosec // Имена атрибутов задаются в описании колонок, значения экранированы
	return template.HTMLAttr(b.String())
}
