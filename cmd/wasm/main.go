//go:build js && wasm

package main

import (
	"bytes"
	"fmt"
	"syscall/js"

	vl "visilearn/pkg/visilearn"
)

var lastModel *vl.Model

func main() {
	js.Global().Set("learnVisibility", js.FuncOf(learnVisibility))
	js.Global().Set("lutSource", js.FuncOf(lutSource))
	select {} // block forever
}

// learnVisibility(examples, options) trains on an array of
// {background, input, groundTruth, mask} objects holding encoded image bytes.
// mask may be null. options may set smoothing and windowSize.
func learnVisibility(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return errorResult("usage: learnVisibility(examples, options)")
	}

	cfg := vl.DefaultConfig()
	if len(args) >= 2 && args[1].Type() == js.TypeObject {
		if v := args[1].Get("smoothing"); v.Type() == js.TypeNumber {
			cfg.Smoothing = v.Float()
		}
		if v := args[1].Get("windowSize"); v.Type() == js.TypeNumber {
			cfg.WindowSize = v.Int()
		}
	}

	acc, err := vl.NewAccumulator(cfg)
	if err != nil {
		return errorResult(err.Error())
	}

	examples := args[0]
	n := examples.Length()
	coverage := make([]interface{}, n)
	for i := 0; i < n; i++ {
		ex, err := decodeExample(examples.Index(i), fmt.Sprintf("example %d", i))
		if err != nil {
			return errorResult(err.Error())
		}
		st, err := acc.AddExample(ex)
		ex.Close()
		if err != nil {
			return errorResult(err.Error())
		}
		coverage[i] = st.Coverage()
	}

	model, err := vl.Export(acc, cfg.Smoothing)
	if err != nil {
		return errorResult(err.Error())
	}
	lastModel = model

	return js.ValueOf(map[string]interface{}{
		"prior":    model.Prior,
		"coverage": coverage,
		"visible":  float32Array(model.Visible.Values()),
		"hidden":   float32Array(model.Hidden.Values()),
	})
}

// lutSource(lang) renders the last trained model as "c" or "go" source.
func lutSource(this js.Value, args []js.Value) interface{} {
	if lastModel == nil {
		return js.Null()
	}
	lang := vl.LangC
	if len(args) >= 1 && args[0].Type() == js.TypeString {
		l, err := vl.ParseSourceLang(args[0].String())
		if err != nil || l == "" {
			return js.Null()
		}
		lang = l
	}
	var buf bytes.Buffer
	if err := vl.WriteSource(&buf, lastModel, lang, ""); err != nil {
		return js.Null()
	}
	return buf.String()
}

func decodeExample(v js.Value, name string) (*vl.Example, error) {
	ex := &vl.Example{Name: name}
	var err error
	if ex.Model, err = decodeImage(v.Get("background")); err != nil {
		return nil, fmt.Errorf("%s background: %w", name, err)
	}
	if ex.Target, err = decodeImage(v.Get("input")); err != nil {
		return nil, fmt.Errorf("%s input: %w", name, err)
	}
	if ex.GroundTruth, err = decodeImage(v.Get("groundTruth")); err != nil {
		return nil, fmt.Errorf("%s ground truth: %w", name, err)
	}
	if m := v.Get("mask"); m.Truthy() {
		mask, err := decodeImage(m)
		if err != nil {
			return nil, fmt.Errorf("%s mask: %w", name, err)
		}
		ex.Mask = &mask
	}
	return ex, nil
}

func decodeImage(jsBytes js.Value) (vl.Mat, error) {
	if !jsBytes.Truthy() {
		return vl.Mat{}, fmt.Errorf("missing image bytes")
	}
	fileBytes := make([]byte, jsBytes.Get("length").Int())
	js.CopyBytesToGo(fileBytes, jsBytes)
	return vl.DecodeGray(bytes.NewReader(fileBytes))
}

func float32Array(values []float32) js.Value {
	arr := js.Global().Get("Float32Array").New(len(values))
	for i, v := range values {
		arr.SetIndex(i, v)
	}
	return arr
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": msg,
	})
}
