package visilearn

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"text/template"
)

// SourceLang selects the language of the generated LUT source file.
type SourceLang string

const (
	LangC  SourceLang = "c"
	LangGo SourceLang = "go"
)

// ParseSourceLang accepts "c", "go" and "" (no source file).
func ParseSourceLang(s string) (SourceLang, error) {
	switch SourceLang(s) {
	case LangC, LangGo, "":
		return SourceLang(s), nil
	}
	return "", fmt.Errorf("unknown source language %q (want c or go)", s)
}

// FileName is the conventional name of the generated file.
func (l SourceLang) FileName() string {
	if l == LangGo {
		return "ncc_proba.go"
	}
	return "ncc_proba.cpp"
}

var sourceFuncs = template.FuncMap{
	"e16": func(v float32) string { return fmt.Sprintf("%16e", v) },
}

var cSourceTmpl = template.Must(template.New("c").Funcs(sourceFuncs).Parse(
	`float ncc_proba_v[] = {
{{range .Visible}}	{{e16 .}},
{{end}}};

float ncc_proba_h[] = {
{{range .Hidden}}	{{e16 .}},
{{end}}};
`))

var goSourceTmpl = template.Must(template.New("go").Funcs(sourceFuncs).Parse(
	`// Code generated by visilearn. DO NOT EDIT.

package {{.Package}}

// Visibility prior of the training set: {{printf "%.6f" .Prior}}.

// LUT layout: index = texture_bin*{{.Stride}} + correlation_bin.

var ncc_proba_v = [...]float32{
{{range .Visible}}	{{e16 .}},
{{end}}}

var ncc_proba_h = [...]float32{
{{range .Hidden}}	{{e16 .}},
{{end}}}
`))

// WriteSource renders both LUTs of m as the flat literal arrays ncc_proba_v
// and ncc_proba_h.
func WriteSource(w io.Writer, m *Model, lang SourceLang, pkg string) error {
	if pkg == "" {
		pkg = "visilearn"
	}
	data := struct {
		Package         string
		Prior           float64
		Stride          int
		Visible, Hidden []float32
	}{
		Package: pkg,
		Prior:   m.Prior,
		Stride:  m.Visible.Binning().Correlations + 1,
		Visible: m.Visible.values,
		Hidden:  m.Hidden.values,
	}

	switch lang {
	case LangC:
		return cSourceTmpl.Execute(w, data)
	case LangGo:
		var buf bytes.Buffer
		if err := goSourceTmpl.Execute(&buf, data); err != nil {
			return err
		}
		src, err := format.Source(buf.Bytes())
		if err != nil {
			return fmt.Errorf("formatting generated source: %w", err)
		}
		_, err = w.Write(src)
		return err
	default:
		return fmt.Errorf("unknown source language %q", lang)
	}
}
