//go:build js && wasm

// Command formwasm binds the upload form state to the page served by the web
// server. `go generate ./cmd/webserver` builds it into
// web/static/formwasm.wasm next to wasm_exec.js.
package main

import (
	"context"
	"fmt"
	"strconv"
	"syscall/js"

	"crosspost/internal/uploadform"
)

var (
	document = js.Global().Get("document")
	console  = js.Global().Get("console")

	loop *uploadform.Loop
	form *uploadform.Form

	// only touched on the loop
	rowElements = map[*uploadform.PreviewRow]js.Value{}
	rowFuncs    []js.Func
)

func main() {
	root := byID("uploadForm")
	if !root.Truthy() {
		console.Call("error", "upload form missing")
		return
	}

	ctx := context.Background()
	loop = uploadform.NewLoop()
	go loop.Run(ctx)

	dataset := root.Get("dataset")
	limit, _ := strconv.Atoi(dataset.Get("charLimit").String())
	variant := uploadform.Ordering
	if dataset.Get("variant").String() == uploadform.Rename.String() {
		variant = uploadform.Rename
	}

	var dests []uploadform.Destination
	for _, d := range uploadform.DefaultDestinations {
		if byID(d.Field).Truthy() {
			dests = append(dests, d)
		}
	}

	form = uploadform.NewForm(loop, uploadform.Options{
		Variant:      variant,
		Destinations: dests,
		CharLimit:    limit,
		OnPreview:    showPreview,
	})

	// the server may have refilled the fields after a rejected submit
	loop.Do(func() {
		form.SetText(byID(uploadform.TextField).Get("value").String())
		form.SetHashtags(byID(uploadform.HashtagTextField).Get("value").String())
		form.SetHashtagOptIn(byID(uploadform.HashtagOptInField).Get("checked").Bool())
		for _, d := range dests {
			if err := form.SetDestination(d.Field, byID(d.Field).Get("checked").Bool()); err != nil {
				console.Call("warn", err.Error())
			}
		}
		renderCounter()
	})

	bindFiles(ctx)
	bindText()
	bindDestinations(dests)
	bindSubmit(root)

	select {}
}

func byID(id string) js.Value {
	return document.Call("getElementById", id)
}

func listen(el js.Value, event string, fn func(this js.Value, args []js.Value)) js.Func {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn(this, args)
		return nil
	})
	el.Call("addEventListener", event, f)
	return f
}

func bindFiles(ctx context.Context) {
	input := byID(uploadform.FilesField)
	listen(input, "change", func(this js.Value, args []js.Value) {
		list := input.Get("files")
		n := list.Get("length").Int()
		files := make([]uploadform.SelectedFile, 0, n)
		for i := 0; i < n; i++ {
			f := list.Call("item", i)
			files = append(files, uploadform.NewSelectedFile(f.Get("name").String(), readFile(f)))
		}
		loop.Do(func() {
			form.SelectFiles(ctx, files)
			renderRows()
		})
	})
}

func bindText() {
	text := byID(uploadform.TextField)
	hashtags := byID(uploadform.HashtagTextField)
	optIn := byID(uploadform.HashtagOptInField)

	listen(text, "input", func(js.Value, []js.Value) {
		v := text.Get("value").String()
		loop.Do(func() { form.SetText(v); renderCounter() })
	})
	listen(hashtags, "input", func(js.Value, []js.Value) {
		v := hashtags.Get("value").String()
		loop.Do(func() { form.SetHashtags(v); renderCounter() })
	})
	listen(optIn, "change", func(js.Value, []js.Value) {
		v := optIn.Get("checked").Bool()
		loop.Do(func() { form.SetHashtagOptIn(v); renderCounter() })
	})
}

func bindDestinations(dests []uploadform.Destination) {
	for _, d := range dests {
		field := d.Field
		box := byID(field)
		listen(box, "change", func(js.Value, []js.Value) {
			v := box.Get("checked").Bool()
			loop.Do(func() {
				if err := form.SetDestination(field, v); err != nil {
					console.Call("warn", err.Error())
				}
			})
		})
	}
}

func bindSubmit(root js.Value) {
	listen(root, "submit", func(this js.Value, args []js.Value) {
		ok := false
		loop.Do(func() {
			ok = form.Submit()
			renderSubmitState()
		})
		if !ok && len(args) > 0 {
			args[0].Call("preventDefault")
		}
	})
}

// readFile reads a browser File through its arrayBuffer promise. It must not
// be called from an event handler.
func readFile(file js.Value) uploadform.ReadFunc {
	return func(ctx context.Context) ([]byte, error) {
		type result struct {
			data []byte
			err  error
		}
		ch := make(chan result, 1)
		then := js.FuncOf(func(this js.Value, args []js.Value) any {
			arr := js.Global().Get("Uint8Array").New(args[0])
			buf := make([]byte, arr.Get("length").Int())
			js.CopyBytesToGo(buf, arr)
			ch <- result{data: buf}
			return nil
		})
		catch := js.FuncOf(func(this js.Value, args []js.Value) any {
			ch <- result{err: fmt.Errorf("read %s: %s", file.Get("name").String(), args[0].Call("toString").String())}
			return nil
		})
		file.Call("arrayBuffer").Call("then", then).Call("catch", catch)

		r := <-ch
		then.Release()
		catch.Release()
		return r.data, r.err
	}
}

// renderRows replaces the preview area with the current rows.
func renderRows() {
	for _, f := range rowFuncs {
		f.Release()
	}
	rowFuncs = nil
	rowElements = map[*uploadform.PreviewRow]js.Value{}

	preview := byID("preview")
	preview.Set("innerHTML", "")
	for _, row := range form.Rows.Rows() {
		preview.Call("appendChild", renderRow(row))
	}
}

func renderRow(row *uploadform.PreviewRow) js.Value {
	div := document.Call("createElement", "div")
	div.Set("className", "preview-row")

	img := document.Call("createElement", "img")
	img.Set("alt", row.FileName)
	div.Call("appendChild", img)
	rowElements[row] = img

	if form.Rows.Variant() == uploadform.Rename {
		input := document.Call("createElement", "input")
		input.Set("type", "text")
		input.Set("name", row.OrderField())
		input.Set("placeholder", row.Placeholder)
		rowFuncs = append(rowFuncs, listen(input, "input", func(js.Value, []js.Value) {
			v := input.Get("value").String()
			loop.Do(func() { form.SetNewName(row.Index, v) })
		}))
		div.Call("appendChild", input)
	} else {
		sel := document.Call("createElement", "select")
		sel.Set("name", row.OrderField())
		for _, choice := range row.Choices {
			opt := document.Call("createElement", "option")
			opt.Set("value", strconv.Itoa(choice))
			opt.Set("textContent", strconv.Itoa(choice))
			opt.Set("selected", choice == row.Order)
			sel.Call("appendChild", opt)
		}
		rowFuncs = append(rowFuncs, listen(sel, "change", func(js.Value, []js.Value) {
			v, err := strconv.Atoi(sel.Get("value").String())
			if err != nil {
				return
			}
			loop.Do(func() {
				if err := form.SetOrder(row.Index, v); err != nil {
					console.Call("warn", err.Error())
				}
			})
		}))
		div.Call("appendChild", sel)

		ext := document.Call("createElement", "input")
		ext.Set("type", "hidden")
		ext.Set("name", row.ExtField())
		ext.Set("value", row.PreservedExtension)
		div.Call("appendChild", ext)
	}

	alt := document.Call("createElement", "textarea")
	alt.Set("name", row.AltField())
	alt.Set("placeholder", "Alt text")
	alt.Set("cols", row.Alt.Cols)
	alt.Set("rows", row.Alt.Height)
	rowFuncs = append(rowFuncs, listen(alt, "input", func(js.Value, []js.Value) {
		v := alt.Get("value").String()
		loop.Do(func() {
			if err := form.SetAlt(row.Index, v); err != nil {
				return
			}
			alt.Set("rows", row.Alt.Height)
		})
	}))
	div.Call("appendChild", alt)
	return div
}

// showPreview runs on the loop when a decode finished.
func showPreview(row *uploadform.PreviewRow) {
	img, ok := rowElements[row]
	if !ok {
		// row of an older selection
		return
	}
	img.Set("src", row.Preview.URL)
}

func renderCounter() {
	byID("charCount").Set("textContent", form.Counter.Count)
	display := "none"
	if form.Counter.WarningVisible {
		display = ""
	}
	byID("charWarning").Get("style").Set("display", display)
}

func renderSubmitState() {
	msg := byID("errorMessage")
	msg.Set("textContent", form.Error.Text)
	display := "none"
	if form.Error.Visible {
		display = ""
	}
	msg.Get("style").Set("display", display)

	button := byID("submitButton")
	button.Set("disabled", form.SubmitButton.Disabled)
	button.Set("textContent", form.SubmitButton.Label)
}
